package namedsql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name  string
		query string
		style namedsql.Style
		want  string
		names []string
	}{
		{"question", "UPDATE CUSTOMER SET GRADE=:grade WHERE ID=:id", namedsql.Question, "UPDATE CUSTOMER SET GRADE=? WHERE ID=?", []string{"grade", "id"}},
		{"dollar", "SELECT * FROM CUSTOMER WHERE AGE >= :age AND AGE < :max", namedsql.Dollar, "SELECT * FROM CUSTOMER WHERE AGE >= $1 AND AGE < $2", []string{"age", "max"}},
		{"repeated", "SELECT :a, :a", namedsql.Dollar, "SELECT $1, $2", []string{"a", "a"}},
		{"literal", "SELECT ':skip' FROM T WHERE X=:x", namedsql.Question, "SELECT ':skip' FROM T WHERE X=?", []string{"x"}},
		{"cast", "SELECT AGE::text FROM T WHERE ID=:id", namedsql.Dollar, "SELECT AGE::text FROM T WHERE ID=$1", []string{"id"}},
		{"none", "SELECT 1", namedsql.Question, "SELECT 1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := namedsql.Compile(tt.query, tt.style)
			assert.Equal(t, tt.want, c.SQL)
			assert.Equal(t, tt.names, c.Names)
		})
	}
}

func TestBind(t *testing.T) {
	c := namedsql.Compile("UPDATE CUSTOMER SET GRADE=:grade WHERE ID=:id", namedsql.Question)

	args, err := c.Bind(map[string]interface{}{"id": 7, "grade": "A"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"A", 7}, args)

	_, err = c.Bind(map[string]interface{}{"id": 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":grade")
}
