// Package generic provides reusable tasklets that are not tied to a domain.
package generic

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ExecutionContextWriterTasklet writes typed values into the ExecutionContext
// of its step. Property keys use the "key.type" format where type is one of
// string, int, float, bool. Values written with Promote also land in the
// job's ExecutionContext so later steps can read them.
type ExecutionContextWriterTasklet struct {
	id         string
	properties map[string]string
	promote    bool
}

// NewExecutionContextWriterTasklet creates the tasklet.
func NewExecutionContextWriterTasklet(id string, properties map[string]string) *ExecutionContextWriterTasklet {
	return &ExecutionContextWriterTasklet{id: id, properties: properties}
}

// Promote makes the tasklet copy every written value into the job's
// ExecutionContext too.
func (t *ExecutionContextWriterTasklet) Promote() *ExecutionContextWriterTasklet {
	t.promote = true
	return t
}

// Execute converts and writes every property. A conversion failure is a
// ValidationError and nothing is written.
func (t *ExecutionContextWriterTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	logger.Infof("ExecutionContextWriterTasklet '%s' executing. Writing %d properties to ExecutionContext.", t.id, len(t.properties))

	keys := make([]string, 0, len(t.properties))
	for k := range t.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make(map[string]interface{}, len(keys))
	for _, keyWithType := range keys {
		valueStr := t.properties[keyWithType]
		key, typeStr, ok := strings.Cut(keyWithType, ".")
		if !ok {
			logger.Warnf("Property key '%s' is not in 'key.type' format. Skipping.", keyWithType)
			continue
		}

		value, err := convert(valueStr, strings.ToLower(typeStr))
		if err != nil {
			return model.RepeatStatusFinished, exception.NewValidationError(t.id,
				fmt.Sprintf("failed to convert value '%s' to type '%s' for key '%s'", valueStr, typeStr, key), err)
		}
		values[key] = value
	}

	for key, value := range values {
		stepExecution.ExecutionContext.Put(key, value)
		if t.promote && stepExecution.JobExecution != nil {
			stepExecution.JobExecution.ExecutionContext.Put(key, value)
		}
		logger.Debugf("Wrote to EC: %s = %v", key, value)
	}
	return model.RepeatStatusFinished, nil
}

func convert(value, typeStr string) (interface{}, error) {
	switch typeStr {
	case "string":
		return value, nil
	case "int":
		return strconv.Atoi(value)
	case "float", "float64":
		return strconv.ParseFloat(value, 64)
	case "bool":
		return strconv.ParseBool(value)
	default:
		logger.Warnf("Unknown type '%s'. Treating as string.", typeStr)
		return value, nil
	}
}

var _ port.Tasklet = (*ExecutionContextWriterTasklet)(nil)
