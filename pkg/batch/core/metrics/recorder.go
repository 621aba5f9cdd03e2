// Package metrics defines the observability contracts used by the step and
// job engines. Concrete recorders and tracers live in infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// MetricRecorder records job, step, item and chunk level metrics.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution with its final status.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution with its final status.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordItemRead counts one item read by stepName.
	RecordItemRead(ctx context.Context, stepName string)
	// RecordItemProcess counts one item that survived processing.
	RecordItemProcess(ctx context.Context, stepName string)
	// RecordItemFilter counts one item dropped by the processor pipeline.
	RecordItemFilter(ctx context.Context, stepName string)
	// RecordItemWrite counts count items written.
	RecordItemWrite(ctx context.Context, stepName string, count int)

	// RecordChunkCommit records a committed chunk of count items.
	RecordChunkCommit(ctx context.Context, stepName string, count int)
	// RecordChunkRollback records a rolled back chunk.
	RecordChunkRollback(ctx context.Context, stepName string)

	// RecordDuration records the duration of an arbitrary named operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
