// Package serialization converts job metadata (parameters, execution
// contexts, failure lists) to and from the JSON columns of the job repository.
package serialization

import (
	"encoding/json"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

const module = "serialization"

// Mask is the replacement written for masked parameter values.
const Mask = "********"

// MaskParameters returns a copy of params with the values of maskedKeys replaced.
func MaskParameters(params map[string]interface{}, maskedKeys []string) map[string]interface{} {
	masked := make(map[string]interface{}, len(params))
	for k, v := range params {
		masked[k] = v
	}
	for _, key := range maskedKeys {
		if _, ok := masked[key]; ok {
			masked[key] = Mask
		}
	}
	return masked
}

// MarshalMap serializes a map column. A nil map is stored as "{}".
func MarshalMap(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, exception.NewDataAccessError(module, "failed to serialize map column", err)
	}
	return data, nil
}

// UnmarshalMap deserializes a map column into a fresh map.
func UnmarshalMap(data []byte) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if len(data) == 0 || string(data) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, exception.NewDataAccessError(module, "failed to deserialize map column", err)
	}
	return m, nil
}

// MarshalFailures serializes a list of failure messages. A nil list is stored as "[]".
func MarshalFailures(failures []string) ([]byte, error) {
	if failures == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return nil, exception.NewDataAccessError(module, "failed to serialize failures", err)
	}
	return data, nil
}

// UnmarshalFailures deserializes a list of failure messages.
func UnmarshalFailures(data []byte) ([]string, error) {
	if len(data) == 0 || string(data) == "null" {
		return []string{}, nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, exception.NewDataAccessError(module, "failed to deserialize failures", err)
	}
	return msgs, nil
}
