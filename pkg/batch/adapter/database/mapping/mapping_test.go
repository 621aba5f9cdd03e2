package mapping_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
)

type customer struct {
	ID    int
	Name  string
	Age   int
	Grade string
}

func customerMapping() *mapping.SchemaMapping {
	return mapping.NewSchemaMapping("CUSTOMER", "ID").
		Map("ID", "ID").
		Map("Name", "NAME").
		Map("Age", "AGE").
		Map("Grade", "GRADE")
}

func TestSchemaMapping_Columns(t *testing.T) {
	m := customerMapping()
	require.NoError(t, m.Validate(&customer{}))
	assert.Equal(t, "ID, NAME, AGE, GRADE", m.SelectList())
	assert.Equal(t, []string{"NAME", "AGE", "GRADE"}, m.UpdateColumns())

	col, ok := m.ColumnFor("Age")
	assert.True(t, ok)
	assert.Equal(t, "AGE", col)
	field, ok := m.FieldFor("grade")
	assert.True(t, ok)
	assert.Equal(t, "Grade", field)
}

func TestSchemaMapping_ValidateRejectsUnknownField(t *testing.T) {
	m := customerMapping().Map("Bonus", "BONUS")
	assert.Error(t, m.Validate(customer{}))
	assert.Error(t, mapping.NewSchemaMapping("").Validate(customer{}))
	assert.Error(t, customerMapping().Validate(42))
}

func TestSchemaMapping_ToRowAndDecode(t *testing.T) {
	m := customerMapping()
	row, err := m.ToRow(&customer{ID: 1, Name: "Alice", Age: 30, Grade: "C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ID": 1, "NAME": "Alice", "AGE": 30, "GRADE": "C"}, row)

	var c customer
	require.NoError(t, m.Decode(map[string]interface{}{"id": int64(2), "NAME": "Bob", "AGE": "41", "EXTRA": true}, &c))
	assert.Equal(t, customer{ID: 2, Name: "Bob", Age: 41}, c)

	_, err = m.ToRow((*customer)(nil))
	assert.Error(t, err)
}

func TestScanRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"ID", "NAME"}).AddRow(int64(1), []byte("Alice")),
	)
	rows, err := db.Query("SELECT ID, NAME FROM CUSTOMER")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	row, err := mapping.ScanRow(rows)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ID": int64(1), "NAME": "Alice"}, row)
}
