package metrics

import (
	"context"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// Tracer opens spans around job and step executions.
type Tracer interface {
	// StartJobSpan starts a span for execution. Call the returned function to end it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a child span for a step execution.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError attaches err to the span in ctx.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds a named event to the span in ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
