package reader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// FieldSet is one tokenized line of a flat file. Fields are addressable by
// position or, when the reader was given column names, by name.
type FieldSet struct {
	names  []string
	values []string
	line   int
}

// NewFieldSet creates a FieldSet. names may be nil.
func NewFieldSet(names, values []string, line int) FieldSet {
	return FieldSet{names: names, values: values, line: line}
}

// Len returns the number of tokens.
func (f FieldSet) Len() int { return len(f.values) }

// Line returns the 1-based line number the tokens came from.
func (f FieldSet) Line() int { return f.line }

// Values returns a copy of the raw tokens.
func (f FieldSet) Values() []string { return append([]string(nil), f.values...) }

func (f FieldSet) index(name string) (int, error) {
	for i, n := range f.names {
		if strings.EqualFold(n, name) {
			return i, nil
		}
	}
	return -1, f.fail(fmt.Sprintf("unknown field '%s'", name), nil)
}

func (f FieldSet) fail(msg string, err error) error {
	return exception.NewValidationError("FieldSet", fmt.Sprintf("line %d: %s", f.line, msg), err)
}

// ReadStringAt returns the trimmed token at index.
func (f FieldSet) ReadStringAt(index int) (string, error) {
	if index < 0 || index >= len(f.values) {
		return "", f.fail(fmt.Sprintf("field index %d out of range (%d fields)", index, len(f.values)), nil)
	}
	return strings.TrimSpace(f.values[index]), nil
}

// ReadString returns the trimmed token named name.
func (f FieldSet) ReadString(name string) (string, error) {
	i, err := f.index(name)
	if err != nil {
		return "", err
	}
	return f.ReadStringAt(i)
}

// ReadIntAt parses the token at index as an int.
func (f FieldSet) ReadIntAt(index int) (int, error) {
	s, err := f.ReadStringAt(index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, f.fail(fmt.Sprintf("field %d: '%s' is not an integer", index, s), err)
	}
	return v, nil
}

// ReadInt parses the token named name as an int.
func (f FieldSet) ReadInt(name string) (int, error) {
	i, err := f.index(name)
	if err != nil {
		return 0, err
	}
	return f.ReadIntAt(i)
}

// ReadFloatAt parses the token at index as a float64.
func (f FieldSet) ReadFloatAt(index int) (float64, error) {
	s, err := f.ReadStringAt(index)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, f.fail(fmt.Sprintf("field %d: '%s' is not a number", index, s), err)
	}
	return v, nil
}

// ReadFloat parses the token named name as a float64.
func (f FieldSet) ReadFloat(name string) (float64, error) {
	i, err := f.index(name)
	if err != nil {
		return 0, err
	}
	return f.ReadFloatAt(i)
}
