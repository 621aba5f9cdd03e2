package model

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/serialization"
)

// RunIDKey is the parameter that carries the run identifier of a launch.
const RunIDKey = "run.id"

// JobParameters identifies a job instance. Two launches with equal
// parameters belong to the same instance.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters returns empty parameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// JobParametersOf builds parameters from a map, copying it.
func JobParametersOf(m map[string]interface{}) JobParameters {
	jp := NewJobParameters()
	for k, v := range m {
		jp.Params[k] = v
	}
	return jp
}

// Put sets key to value.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get returns the raw value for key, or nil.
func (jp JobParameters) Get(key string) interface{} {
	return jp.Params[key]
}

// GetString returns the value for key if it is a string.
func (jp JobParameters) GetString(key string) (string, bool) {
	s, ok := jp.Params[key].(string)
	return s, ok
}

// GetInt returns the value for key as an int.
func (jp JobParameters) GetInt(key string) (int, bool) {
	v, ok := jp.Params[key]
	if !ok {
		return 0, false
	}
	return toInt(v)
}

// GetIntOrDefault returns GetInt or def when the key is missing or not numeric.
func (jp JobParameters) GetIntOrDefault(key string, def int) int {
	if i, ok := jp.GetInt(key); ok {
		return i
	}
	return def
}

// Copy returns a deep-enough copy for mutation of the top-level map.
func (jp JobParameters) Copy() JobParameters {
	return JobParametersOf(jp.Params)
}

// Equal compares two parameter sets after a JSON normalisation, so that an
// int and the float64 it becomes after persistence compare equal.
func (jp JobParameters) Equal(other JobParameters) bool {
	a, errA := jp.canonical()
	b, errB := other.canonical()
	if errA != nil || errB != nil {
		return reflect.DeepEqual(jp.Params, other.Params)
	}
	return a == b
}

// Hash returns a stable SHA-256 of the parameters.
func (jp JobParameters) Hash() (string, error) {
	c, err := jp.canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:]), nil
}

// canonical re-encodes the parameters through JSON; encoding/json sorts map keys.
func (jp JobParameters) canonical() (string, error) {
	data, err := json.Marshal(jp.Params)
	if err != nil {
		return "", err
	}
	var normalized interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return "", err
	}
	out, err := json.Marshal(normalized)
	return string(out), err
}

// String renders the parameters as JSON.
func (jp JobParameters) String() string {
	return jp.Masked(nil)
}

// Masked renders the parameters as JSON with the values of maskedKeys hidden.
func (jp JobParameters) Masked(maskedKeys []string) string {
	data, err := json.Marshal(serialization.MaskParameters(jp.Params, maskedKeys))
	if err != nil {
		return fmt.Sprintf("{<unprintable parameters: %v>}", err)
	}
	return string(data)
}

// Value implements driver.Valuer.
func (jp JobParameters) Value() (driver.Value, error) {
	data, err := serialization.MarshalMap(jp.Params)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (jp *JobParameters) Scan(value interface{}) error {
	data, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("JobParameters: %w", err)
	}
	m, err := serialization.UnmarshalMap(data)
	if err != nil {
		return err
	}
	jp.Params = m
	return nil
}
