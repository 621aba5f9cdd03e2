package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/chunkbatch/pkg/batch/core/metrics"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// OtelMetricRecorder records the batch metrics as OpenTelemetry instruments.
type OtelMetricRecorder struct {
	jobs          otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	steps         otelmetric.Int64Counter
	stepDuration  otelmetric.Float64Histogram
	items         otelmetric.Int64Counter
	chunks        otelmetric.Int64Counter
	operationTime otelmetric.Float64Histogram
}

// NewOtelMetricRecorder creates the instruments on a meter of provider.
func NewOtelMetricRecorder(provider otelmetric.MeterProvider) (*OtelMetricRecorder, error) {
	meter := provider.Meter(InstrumentationName)
	r := &OtelMetricRecorder{}
	var err error

	if r.jobs, err = meter.Int64Counter("batch.job.executions", otelmetric.WithDescription("Job executions by status.")); err != nil {
		return nil, instrumentError("batch.job.executions", err)
	}
	if r.jobDuration, err = meter.Float64Histogram("batch.job.duration", otelmetric.WithUnit("s"), otelmetric.WithDescription("Duration of job executions.")); err != nil {
		return nil, instrumentError("batch.job.duration", err)
	}
	if r.steps, err = meter.Int64Counter("batch.step.executions", otelmetric.WithDescription("Step executions by status.")); err != nil {
		return nil, instrumentError("batch.step.executions", err)
	}
	if r.stepDuration, err = meter.Float64Histogram("batch.step.duration", otelmetric.WithUnit("s"), otelmetric.WithDescription("Duration of step executions.")); err != nil {
		return nil, instrumentError("batch.step.duration", err)
	}
	if r.items, err = meter.Int64Counter("batch.items", otelmetric.WithDescription("Items by step and outcome (read, process, filter, write).")); err != nil {
		return nil, instrumentError("batch.items", err)
	}
	if r.chunks, err = meter.Int64Counter("batch.chunks", otelmetric.WithDescription("Chunks by step and outcome (commit, rollback).")); err != nil {
		return nil, instrumentError("batch.chunks", err)
	}
	if r.operationTime, err = meter.Float64Histogram("batch.operation.duration", otelmetric.WithUnit("s")); err != nil {
		return nil, instrumentError("batch.operation.duration", err)
	}
	return r, nil
}

func instrumentError(name string, err error) error {
	return exception.NewBatchError("otel_metrics", exception.KindConfiguration, "failed to create instrument "+name, err)
}

// RecordJobStart counts a started job.
func (r *OtelMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.jobs.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	))
}

// RecordJobEnd counts a finished job and records its duration.
func (r *OtelMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	attrs := otelmetric.WithAttributes(
		attribute.String("job_name", execution.JobName),
		attribute.String("status", execution.Status.String()),
	)
	r.jobs.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.jobDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

// RecordStepStart counts a started step.
func (r *OtelMetricRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.steps.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	))
}

// RecordStepEnd counts a finished step and records its duration.
func (r *OtelMetricRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	attrs := otelmetric.WithAttributes(
		attribute.String("step_name", execution.StepName),
		attribute.String("status", execution.Status.String()),
	)
	r.steps.Add(ctx, 1, attrs)
	if execution.EndTime != nil {
		r.stepDuration.Record(ctx, execution.EndTime.Sub(execution.StartTime).Seconds(), attrs)
	}
}

func (r *OtelMetricRecorder) item(ctx context.Context, stepName, outcome string, n int) {
	r.items.Add(ctx, int64(n), otelmetric.WithAttributes(
		attribute.String("step_name", stepName),
		attribute.String("outcome", outcome),
	))
}

// RecordItemRead counts one item read.
func (r *OtelMetricRecorder) RecordItemRead(ctx context.Context, stepName string) {
	r.item(ctx, stepName, "read", 1)
}

// RecordItemProcess counts one processed item.
func (r *OtelMetricRecorder) RecordItemProcess(ctx context.Context, stepName string) {
	r.item(ctx, stepName, "process", 1)
}

// RecordItemFilter counts one filtered item.
func (r *OtelMetricRecorder) RecordItemFilter(ctx context.Context, stepName string) {
	r.item(ctx, stepName, "filter", 1)
}

// RecordItemWrite counts written items.
func (r *OtelMetricRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.item(ctx, stepName, "write", count)
}

// RecordChunkCommit counts a committed chunk.
func (r *OtelMetricRecorder) RecordChunkCommit(ctx context.Context, stepName string, count int) {
	r.chunks.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("step_name", stepName), attribute.String("outcome", "commit")))
}

// RecordChunkRollback counts a rolled back chunk.
func (r *OtelMetricRecorder) RecordChunkRollback(ctx context.Context, stepName string) {
	r.chunks.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("step_name", stepName), attribute.String("outcome", "rollback")))
}

// RecordDuration records the duration of a named operation; tags become attributes.
func (r *OtelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("operation", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operationTime.Record(ctx, duration.Seconds(), otelmetric.WithAttributes(attrs...))
}

var _ metrics.MetricRecorder = (*OtelMetricRecorder)(nil)
