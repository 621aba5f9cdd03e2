package generic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/component/tasklet/generic"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkbatch/pkg/batch/test"
)

func TestExecutionContextWriterTasklet_WritesTypedValues(t *testing.T) {
	je := testutil.NewTestJobExecution("nextStepJob", nil)
	se := testutil.NewTestStepExecution(je, "step01")

	tasklet := generic.NewExecutionContextWriterTasklet("step01", map[string]string{
		"greeting.string": "hello",
		"limit.int":       "42",
		"ratio.float":     "0.5",
		"enabled.bool":    "true",
		"malformed":       "skipped",
	}).Promote()

	status, err := tasklet.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.RepeatStatusFinished, status)

	greeting, ok := se.ExecutionContext.GetString("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", greeting)
	limit, ok := se.ExecutionContext.GetInt("limit")
	require.True(t, ok)
	assert.Equal(t, 42, limit)
	ratio, _ := se.ExecutionContext.Get("ratio")
	assert.Equal(t, 0.5, ratio)
	enabled, _ := se.ExecutionContext.Get("enabled")
	assert.Equal(t, true, enabled)
	_, ok = se.ExecutionContext.Get("malformed")
	assert.False(t, ok)

	promoted, ok := je.ExecutionContext.GetInt("limit")
	require.True(t, ok)
	assert.Equal(t, 42, promoted)
}

func TestExecutionContextWriterTasklet_ConversionFailure(t *testing.T) {
	se := testutil.NewTestStepExecution(testutil.NewTestJobExecution("nextStepJob", nil), "step01")
	tasklet := generic.NewExecutionContextWriterTasklet("step01", map[string]string{
		"count.int":   "many",
		"name.string": "kept out",
	})

	_, err := tasklet.Execute(context.Background(), se)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindValidation))
	_, ok := se.ExecutionContext.Get("name")
	assert.False(t, ok)
}
