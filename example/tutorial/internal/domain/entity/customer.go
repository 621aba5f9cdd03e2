// Package entity holds the records the tutorial jobs read and write.
package entity

import (
	"fmt"
	"strings"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
)

// CustomerTable is the table customers are stored in.
const CustomerTable = "CUSTOMER"

// Grade ranks a customer.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Customer is a row of the CUSTOMER table or a line of customers.tsv.
type Customer struct {
	ID     int
	Name   string
	Age    int
	Gender int
	Grade  Grade
}

// AddOneAge increments the age.
func (c *Customer) AddOneAge() {
	c.Age++
}

// After20Years adds twenty years to the age.
func (c *Customer) After20Years() {
	c.Age += 20
}

// NameToLowerCase lower-cases the name.
func (c *Customer) NameToLowerCase() {
	c.Name = strings.ToLower(c.Name)
}

// AssignGrade derives the grade from the age: 50 and over A, 40 and over B,
// 30 and over C, D otherwise.
func (c *Customer) AssignGrade() {
	switch {
	case c.Age >= 50:
		c.Grade = GradeA
	case c.Age >= 40:
		c.Grade = GradeB
	case c.Age >= 30:
		c.Grade = GradeC
	default:
		c.Grade = GradeD
	}
}

func (c *Customer) String() string {
	return fmt.Sprintf("Customer(id=%d, name=%s, age=%d, gender=%d, grade=%s)", c.ID, c.Name, c.Age, c.Gender, c.Grade)
}

// CustomerMapping binds Customer to the CUSTOMER table, keyed by ID.
func CustomerMapping() *mapping.SchemaMapping {
	return mapping.NewSchemaMapping(CustomerTable, "ID").
		Map("ID", "ID").
		Map("Name", "NAME").
		Map("Age", "AGE").
		Map("Gender", "GENDER").
		Map("Grade", "GRADE")
}

// CustomerRecord is the export form of a Customer.
type CustomerRecord struct {
	ID     int64  `parquet:"name=id, type=INT64" json:"id"`
	Name   string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8" json:"name"`
	Age    int64  `parquet:"name=age, type=INT64" json:"age"`
	Gender int64  `parquet:"name=gender, type=INT64" json:"gender"`
	Grade  string `parquet:"name=grade, type=BYTE_ARRAY, convertedtype=UTF8" json:"grade"`
}

// ToRecord converts c to its export form.
func (c *Customer) ToRecord() CustomerRecord {
	return CustomerRecord{
		ID:     int64(c.ID),
		Name:   c.Name,
		Age:    int64(c.Age),
		Gender: int64(c.Gender),
		Grade:  string(c.Grade),
	}
}
