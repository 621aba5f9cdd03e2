package reader_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/reader"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

func newMockConnection(t *testing.T, style namedsql.Style) (*sqldb.Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqldb.NewConnection("workload", db, dbconfig.DatabaseConfig{Type: "postgres"}, sqldb.Dialect{DriverName: "sqlmock", Style: style}), mock
}

func customerMapping() *mapping.SchemaMapping {
	return mapping.NewSchemaMapping("CUSTOMER", "ID").
		Map("ID", "ID").
		Map("Name", "NAME").
		Map("Age", "AGE")
}

func TestSQLPagingSource_MappingAndPagingWindow(t *testing.T) {
	conn, mock := newMockConnection(t, namedsql.Dollar)
	src, err := reader.NewSQLPagingSource[*customer](conn, reader.SQLPagingSourceConfig[*customer]{
		Name:        "customers",
		FromClause:  "CUSTOMER",
		WhereClause: "AGE >= :minAge",
		SortKeys:    []reader.SortKey{{Column: "ID"}},
		Parameters:  map[string]interface{}{"minAge": 18},
		PageSize:    2,
		Mapping:     customerMapping(),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT ID, NAME, AGE FROM CUSTOMER WHERE AGE >= $1 ORDER BY ID ASC", src.Query())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ID, NAME, AGE FROM CUSTOMER WHERE AGE >= $1 ORDER BY ID ASC LIMIT 2 OFFSET 2")).
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME", "AGE"}).
			AddRow(3, "Carol", 25).
			AddRow(4, "Dave", 52))

	items, err := src.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, &customer{ID: 3, Name: "Carol", Age: 25}, items[0])
	assert.Equal(t, "Dave", items[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPagingSource_RowMapperAndAlwaysReadFromZero(t *testing.T) {
	conn, mock := newMockConnection(t, namedsql.Question)
	src, err := reader.NewSQLPagingSource[string](conn, reader.SQLPagingSourceConfig[string]{
		SelectClause:       "NAME",
		FromClause:         "CUSTOMER",
		SortKeys:           []reader.SortKey{{Column: "AGE", Descending: true}, {Column: "ID"}},
		PageSize:           5,
		AlwaysReadFromZero: true,
		RowMapper: func(rows *sql.Rows) (string, error) {
			var name string
			err := rows.Scan(&name)
			return name, err
		},
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT NAME FROM CUSTOMER ORDER BY AGE DESC, ID ASC LIMIT 5 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"NAME"}))

	items, err := src.FetchPage(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLPagingSource_QueryFailureIsDataAccessError(t *testing.T) {
	conn, mock := newMockConnection(t, namedsql.Question)
	src, err := reader.NewSQLPagingSource[*customer](conn, reader.SQLPagingSourceConfig[*customer]{
		FromClause: "CUSTOMER",
		SortKeys:   []reader.SortKey{{Column: "ID"}},
		PageSize:   10,
		Mapping:    customerMapping(),
	})
	require.NoError(t, err)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err = src.FetchPage(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))
}

func TestNewSQLPagingSource_Validation(t *testing.T) {
	conn, _ := newMockConnection(t, namedsql.Question)
	base := reader.SQLPagingSourceConfig[*customer]{
		FromClause: "CUSTOMER",
		SortKeys:   []reader.SortKey{{Column: "ID"}},
		PageSize:   10,
		Mapping:    customerMapping(),
	}

	noSort := base
	noSort.SortKeys = nil
	_, err := reader.NewSQLPagingSource[*customer](conn, noSort)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))

	missingParam := base
	missingParam.WhereClause = "AGE > :minAge"
	_, err = reader.NewSQLPagingSource[*customer](conn, missingParam)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))

	noMapper := base
	noMapper.Mapping = nil
	_, err = reader.NewSQLPagingSource[*customer](conn, noMapper)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestNamedStatementPagingSource(t *testing.T) {
	conn, mock := newMockConnection(t, namedsql.Question)
	registry := statement.NewRegistry().
		Register("customer.selectAdults", "SELECT ID, NAME, AGE FROM CUSTOMER WHERE AGE >= :minAge ORDER BY ID LIMIT :_pagesize OFFSET :_skiprows")
	src, err := reader.NewNamedStatementPagingSource[*customer](conn, registry, "customer.selectAdults",
		map[string]interface{}{"minAge": 20}, 3, customerMapping())
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT ID, NAME, AGE FROM CUSTOMER WHERE AGE >= ? ORDER BY ID LIMIT ? OFFSET ?")).
		WithArgs(20, 3, 6).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "NAME", "AGE"}).AddRow(7, "Grace", "33"))

	items, err := src.FetchPage(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, &customer{ID: 7, Name: "Grace", Age: 33}, items[0])
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = reader.NewNamedStatementPagingSource[*customer](conn, registry, "customer.unknown", nil, 3, customerMapping())
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
