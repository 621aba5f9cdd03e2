// Package mapping maps Go struct fields to table columns without struct tags,
// so domain records stay free of persistence annotations.
package mapping

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ColumnMapping binds one struct field to one column.
type ColumnMapping struct {
	Field  string
	Column string
}

// SchemaMapping describes how a record type is stored in Table.
type SchemaMapping struct {
	Table   string
	Key     []string
	Columns []ColumnMapping
}

// NewSchemaMapping creates a mapping for table keyed by the given columns.
func NewSchemaMapping(table string, key ...string) *SchemaMapping {
	return &SchemaMapping{Table: table, Key: key}
}

// Map adds a field to column binding.
func (m *SchemaMapping) Map(field, column string) *SchemaMapping {
	m.Columns = append(m.Columns, ColumnMapping{Field: field, Column: column})
	return m
}

// ColumnNames lists the mapped columns in declaration order.
func (m *SchemaMapping) ColumnNames() []string {
	cols := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = c.Column
	}
	return cols
}

// UpdateColumns lists the mapped columns that are not part of the key.
func (m *SchemaMapping) UpdateColumns() []string {
	var cols []string
	for _, c := range m.Columns {
		if !m.isKey(c.Column) {
			cols = append(cols, c.Column)
		}
	}
	return cols
}

// SelectList renders the column list for a SELECT clause.
func (m *SchemaMapping) SelectList() string {
	return strings.Join(m.ColumnNames(), ", ")
}

// ColumnFor returns the column bound to field.
func (m *SchemaMapping) ColumnFor(field string) (string, bool) {
	for _, c := range m.Columns {
		if c.Field == field {
			return c.Column, true
		}
	}
	return "", false
}

// FieldFor returns the field bound to column. Column names compare case-insensitively.
func (m *SchemaMapping) FieldFor(column string) (string, bool) {
	for _, c := range m.Columns {
		if strings.EqualFold(c.Column, column) {
			return c.Field, true
		}
	}
	return "", false
}

func (m *SchemaMapping) isKey(column string) bool {
	for _, k := range m.Key {
		if strings.EqualFold(k, column) {
			return true
		}
	}
	return false
}

// Validate checks that every mapped field exists on the struct type of sample.
func (m *SchemaMapping) Validate(sample interface{}) error {
	if m.Table == "" {
		return fmt.Errorf("schema mapping has no table")
	}
	t := reflect.TypeOf(sample)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("schema mapping for %s: %T is not a struct", m.Table, sample)
	}
	for _, c := range m.Columns {
		if _, ok := t.FieldByName(c.Field); !ok {
			return fmt.Errorf("schema mapping for %s: %s has no field %s", m.Table, t.Name(), c.Field)
		}
	}
	for _, k := range m.Key {
		if _, ok := m.FieldFor(k); !ok {
			return fmt.Errorf("schema mapping for %s: key column %s is not mapped", m.Table, k)
		}
	}
	return nil
}

// ToRow renders item as a column map.
func (m *SchemaMapping) ToRow(item interface{}) (map[string]interface{}, error) {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("schema mapping for %s: nil item", m.Table)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema mapping for %s: %T is not a struct", m.Table, item)
	}
	row := make(map[string]interface{}, len(m.Columns))
	for _, c := range m.Columns {
		f := v.FieldByName(c.Field)
		if !f.IsValid() {
			return nil, fmt.Errorf("schema mapping for %s: no field %s", m.Table, c.Field)
		}
		row[c.Column] = f.Interface()
	}
	return row, nil
}

// Decode fills target (a struct pointer) from a column map. Unmapped columns are ignored.
func (m *SchemaMapping) Decode(row map[string]interface{}, target interface{}) error {
	fields := make(map[string]interface{}, len(row))
	for col, val := range row {
		if field, ok := m.FieldFor(col); ok {
			fields[field] = val
		}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02 15:04:05"),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(fields); err != nil {
		return fmt.Errorf("decode %s row into %T: %w", m.Table, target, err)
	}
	return nil
}

// ScanRow reads the current row of rows into a column map. Byte slices are
// returned as strings.
func ScanRow(rows *sql.Rows) (map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}
