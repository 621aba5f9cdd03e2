package writer_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/sqldb"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
	"github.com/tigerroll/chunkbatch/pkg/batch/component/step/writer"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

type customer struct {
	ID   int
	Name string
	Age  int
}

func newMockTx(t *testing.T) (tx.TransactionManager, tx.Tx, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	conn := sqldb.NewConnection("workload", db, dbconfig.DatabaseConfig{Type: "mysql"},
		sqldb.Dialect{DriverName: "sqlmock", Style: namedsql.Question, Upsert: sqldb.UpsertOnDuplicateKey})
	tm := sqldb.NewSQLTransactionManager(conn)
	mock.ExpectBegin()
	transaction, err := tm.Begin(context.Background())
	require.NoError(t, err)
	return tm, transaction, mock
}

func TestNamedStatementItemWriter_PreparesOncePerChunk(t *testing.T) {
	tm, transaction, mock := newMockTx(t)
	registry := statement.NewRegistry().Register("updateCustomer", "UPDATE CUSTOMER SET AGE = :age WHERE ID = :id")
	w, err := writer.NewNamedStatementItemWriter[*customer](registry, "updateCustomer", nil)
	require.NoError(t, err)

	prep := mock.ExpectPrepare(regexp.QuoteMeta("UPDATE CUSTOMER SET AGE = ? WHERE ID = ?"))
	prep.ExpectExec().WithArgs(31, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(42, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, w.Open(ctx, nil))
	require.NoError(t, w.Write(ctx, transaction, []*customer{{ID: 1, Age: 31}, {ID: 2, Age: 42}}))
	require.NoError(t, tm.Commit(transaction))
	require.NoError(t, w.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBatchItemWriter_StatementFailureIsDataAccessError(t *testing.T) {
	tm, transaction, mock := newMockTx(t)
	w, err := writer.NewSQLBatchItemWriter[customer]("insertCustomer",
		"INSERT INTO CUSTOMER (ID, NAME) VALUES (:id, :name)",
		func(c customer) (map[string]interface{}, error) {
			return map[string]interface{}{"id": c.ID, "name": c.Name}, nil
		})
	require.NoError(t, err)

	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO CUSTOMER (ID, NAME) VALUES (?, ?)"))
	prep.ExpectExec().WithArgs(1, "Alice").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err = w.Write(context.Background(), transaction, []customer{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))
	require.NoError(t, tm.Rollback(transaction))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBatchItemWriter_AssertUpdates(t *testing.T) {
	_, transaction, mock := newMockTx(t)
	w, err := writer.NewSQLBatchItemWriter[customer]("touch", "UPDATE CUSTOMER SET AGE = :age WHERE ID = :id", writer.StructParams[customer]())
	require.NoError(t, err)
	w.AssertUpdates(true)

	mock.ExpectPrepare(regexp.QuoteMeta("UPDATE CUSTOMER SET AGE = ? WHERE ID = ?")).
		ExpectExec().WithArgs(1, 9).WillReturnResult(sqlmock.NewResult(0, 0))

	err = w.Write(context.Background(), transaction, []customer{{ID: 9, Age: 1}})
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))
}

func TestUpsertItemWriter_SplitsIntoBulkStatements(t *testing.T) {
	tm, transaction, mock := newMockTx(t)
	w, err := writer.NewUpsertItemWriter[*customer]("customerUpsert", 10, customerMapping())
	require.NoError(t, err)

	upsert := regexp.QuoteMeta("INSERT INTO CUSTOMER (AGE, ID, NAME) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE NAME = VALUES(NAME), AGE = VALUES(AGE)")
	mock.ExpectExec(upsert).WithArgs(30, 1, "Alice").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).WithArgs(41, 2, "Bob").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, w.Write(context.Background(), transaction, []*customer{{ID: 1, Name: "Alice", Age: 30}, {ID: 2, Name: "Bob", Age: 41}}))
	require.NoError(t, tm.Commit(transaction))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewNamedStatementItemWriter_UnknownStatement(t *testing.T) {
	_, err := writer.NewNamedStatementItemWriter[customer](statement.NewRegistry(), "missing", nil)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
