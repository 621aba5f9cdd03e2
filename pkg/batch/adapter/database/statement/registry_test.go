package statement_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

const customerMapper = `
namespace: customer
statements:
  selectCustomers: SELECT ID, NAME, AGE FROM CUSTOMER ORDER BY ID LIMIT :_pagesize OFFSET :_skiprows
  updateCustomer: UPDATE CUSTOMER SET AGE = :age WHERE ID = :id
`

func TestRegistry_Load(t *testing.T) {
	r := statement.NewRegistry()
	require.NoError(t, r.Load(strings.NewReader(customerMapper)))

	sql, err := r.Get("updateCustomer")
	require.NoError(t, err)
	assert.Equal(t, "UPDATE CUSTOMER SET AGE = :age WHERE ID = :id", sql)

	qualified, err := r.Get("customer.updateCustomer")
	require.NoError(t, err)
	assert.Equal(t, sql, qualified)
	assert.Len(t, r.IDs(), 4)

	_, err = r.Get("deleteCustomer")
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestRegistry_LoadRejectsInvalidYAML(t *testing.T) {
	err := statement.NewRegistry().Load(strings.NewReader("statements: [unclosed"))
	assert.Error(t, err)
}
