package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder discards everything.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder returns a recorder that records nothing.
func NewNoOpMetricRecorder() *NoOpMetricRecorder { return &NoOpMetricRecorder{} }

func (r *NoOpMetricRecorder) RecordJobStart(context.Context, *model.JobExecution)   {}
func (r *NoOpMetricRecorder) RecordJobEnd(context.Context, *model.JobExecution)     {}
func (r *NoOpMetricRecorder) RecordStepStart(context.Context, *model.StepExecution) {}
func (r *NoOpMetricRecorder) RecordStepEnd(context.Context, *model.StepExecution)   {}
func (r *NoOpMetricRecorder) RecordItemRead(context.Context, string)                {}
func (r *NoOpMetricRecorder) RecordItemProcess(context.Context, string)             {}
func (r *NoOpMetricRecorder) RecordItemFilter(context.Context, string)              {}
func (r *NoOpMetricRecorder) RecordItemWrite(context.Context, string, int)          {}
func (r *NoOpMetricRecorder) RecordChunkCommit(context.Context, string, int)        {}
func (r *NoOpMetricRecorder) RecordChunkRollback(context.Context, string)           {}
func (r *NoOpMetricRecorder) RecordDuration(context.Context, string, time.Duration, map[string]string) {
}

// NoOpTracer starts no spans.
type NoOpTracer struct{}

// NewNoOpTracer returns a tracer that traces nothing.
func NewNoOpTracer() *NoOpTracer { return &NoOpTracer{} }

func (t *NoOpTracer) StartJobSpan(ctx context.Context, _ *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) StartStepSpan(ctx context.Context, _ *model.StepExecution) (context.Context, func()) {
	return ctx, func() {}
}
func (t *NoOpTracer) RecordError(context.Context, string, error)                  {}
func (t *NoOpTracer) RecordEvent(context.Context, string, map[string]interface{}) {}

var (
	_ MetricRecorder = (*NoOpMetricRecorder)(nil)
	_ Tracer         = (*NoOpTracer)(nil)
)
