package model

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/serialization"
)

// ExecutionContext is a key/value store attached to a job or step execution.
// Readers and writers record their progress in it; it is persisted as JSON.
type ExecutionContext map[string]interface{}

// NewExecutionContext returns an empty context.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// Put stores value under key.
func (ec ExecutionContext) Put(key string, value interface{}) {
	ec[key] = value
}

// Get returns the raw value for key.
func (ec ExecutionContext) Get(key string) (interface{}, bool) {
	v, ok := ec[key]
	return v, ok
}

// GetString returns the value for key if it is a string.
func (ec ExecutionContext) GetString(key string) (string, bool) {
	s, ok := ec[key].(string)
	return s, ok
}

// GetInt returns the value for key as an int. Numbers that went through JSON
// arrive as float64 and numeric strings are parsed.
func (ec ExecutionContext) GetInt(key string) (int, bool) {
	v, ok := ec[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// GetInt64 is GetInt for counters.
func (ec ExecutionContext) GetInt64(key string) (int64, bool) {
	i, ok := ec.GetInt(key)
	return int64(i), ok
}

// Remove deletes key.
func (ec ExecutionContext) Remove(key string) {
	delete(ec, key)
}

// Copy returns a shallow copy.
func (ec ExecutionContext) Copy() ExecutionContext {
	out := make(ExecutionContext, len(ec))
	for k, v := range ec {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer.
func (ec ExecutionContext) Value() (driver.Value, error) {
	data, err := serialization.MarshalMap(ec)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (ec *ExecutionContext) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("ExecutionContext: %w", err)
	}
	m, err := serialization.UnmarshalMap(data)
	if err != nil {
		return err
	}
	*ec = m
	return nil
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf("unsupported Scan type %T", value)
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}
