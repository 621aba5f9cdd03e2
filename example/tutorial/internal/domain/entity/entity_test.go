package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/domain/entity"
)

func TestCustomer_AssignGrade(t *testing.T) {
	cases := []struct {
		age  int
		want entity.Grade
	}{
		{age: 65, want: entity.GradeA},
		{age: 50, want: entity.GradeA},
		{age: 49, want: entity.GradeB},
		{age: 40, want: entity.GradeB},
		{age: 30, want: entity.GradeC},
		{age: 29, want: entity.GradeD},
		{age: 0, want: entity.GradeD},
	}
	for _, tc := range cases {
		c := &entity.Customer{Age: tc.age}
		c.AssignGrade()
		assert.Equal(t, tc.want, c.Grade, "age %d", tc.age)
	}
}

func TestCustomer_Mutators(t *testing.T) {
	c := &entity.Customer{ID: 7, Name: "Alice KIM", Age: 31}
	c.AddOneAge()
	c.After20Years()
	c.NameToLowerCase()
	assert.Equal(t, 52, c.Age)
	assert.Equal(t, "alice kim", c.Name)

	rec := c.ToRecord()
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, int64(52), rec.Age)
}

func TestMappings(t *testing.T) {
	require.NoError(t, entity.CustomerMapping().Validate(entity.Customer{}))
	require.NoError(t, entity.PlayerMapping().Validate(entity.Player{}))

	row, err := entity.CustomerMapping().ToRow(&entity.Customer{ID: 1, Name: "Bob", Age: 41, Gender: 1, Grade: entity.GradeB})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ID": 1, "NAME": "Bob", "AGE": 41, "GENDER": 1, "GRADE": entity.GradeB}, row)

	var decoded entity.Customer
	require.NoError(t, entity.CustomerMapping().Decode(map[string]interface{}{"id": int64(3), "name": "Carol", "age": "28", "grade": "D"}, &decoded))
	assert.Equal(t, entity.Customer{ID: 3, Name: "Carol", Age: 28, Grade: entity.GradeD}, decoded)
}
