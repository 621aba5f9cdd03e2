// Package port defines the core interfaces (ports) for the batch engine.
// Readers, processors, writers, tasklets, steps and jobs are all expressed
// here so that engine code never depends on a concrete backend.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
)

// ErrNoMoreItems is returned by ItemReader.Read at end of input. It is a
// sentinel, never a failure.
var ErrNoMoreItems = errors.New("no more items to read")

// ItemStream is implemented by components holding resources for the lifetime
// of a step execution.
type ItemStream interface {
	// Open opens resources and may restore state from the ExecutionContext.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   ec: The ExecutionContext of the current StepExecution.
	//
	// Returns:
	//   error: An error if opening fails.
	Open(ctx context.Context, ec model.ExecutionContext) error
	// Close releases resources.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//
	// Returns:
	//   error: An error if closing fails.
	Close(ctx context.Context) error
}

// ExecutionContextAware is implemented by streams that expose their state.
type ExecutionContextAware interface {
	// GetExecutionContext returns a copy of the component's current state.
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// ItemReader reads items one at a time.
// O is the type of item to be read.
type ItemReader[O any] interface {
	ItemStream
	// Read reads the next item.
	//
	// Returns:
	//   O: The next item.
	//   error: ErrNoMoreItems at end of input, or another error if reading fails.
	Read(ctx context.Context) (O, error)
}

// ItemProcessor transforms one item.
// A nil result (nil pointer, map, slice or interface) means the item is
// filtered and must not be written.
type ItemProcessor[I, O any] interface {
	// Process processes the given item.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   item: The item to process.
	//
	// Returns:
	//   O: The processed item, or nil to filter it.
	//   error: An error if processing fails. The enclosing chunk is rolled back.
	Process(ctx context.Context, item I) (O, error)
}

// ItemWriter writes one chunk.
type ItemWriter[I any] interface {
	ItemStream
	// Write writes a chunk inside the chunk transaction. It is all-or-nothing:
	// an error means no item of the chunk is considered persisted.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   t: The transaction of the current chunk.
	//   items: The chunk, never longer than the step's chunk size.
	//
	// Returns:
	//   error: An error if writing fails.
	Write(ctx context.Context, t tx.Tx, items []I) error
}

// PageSource fetches one page of items at a time.
type PageSource[T any] interface {
	// FetchPage returns at most PageSize items for pageNumber (>= 0).
	// An empty slice signals exhaustion.
	FetchPage(ctx context.Context, pageNumber int) ([]T, error)
	// PageSize returns the fixed page size.
	PageSize() int
}

// Tasklet is the body of a non-chunked step.
type Tasklet interface {
	// Execute runs one iteration. CONTINUABLE asks to be invoked again.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   stepExecution: The current StepExecution. A tasklet may set a custom ExitStatus on it.
	//
	// Returns:
	//   model.RepeatStatus: FINISHED or CONTINUABLE.
	//   error: An error if the iteration fails. The step ends FAILED.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error)
}

// TaskletFunc adapts a function to the Tasklet interface.
type TaskletFunc func(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error)

// Execute calls f.
func (f TaskletFunc) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.RepeatStatus, error) {
	return f(ctx, stepExecution)
}

// Step is a single unit of work executed within a job.
type Step interface {
	// StepName returns the logical name of the step.
	StepName() string
	// Execute executes the step and leaves its outcome on stepExecution.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   jobExecution: The current JobExecution instance.
	//   stepExecution: The StepExecution created for this run of the step.
	//
	// Returns:
	//   error: The error that failed the step, if any.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
}

// Job is an executable batch job.
type Job interface {
	// JobName returns the logical name of the job.
	JobName() string
	// Run executes the job flow and leaves the outcome on jobExecution.
	//
	// Parameters:
	//   ctx: The context for the operation.
	//   jobExecution: The current JobExecution instance.
	//
	// Returns:
	//   error: An error if the job execution fails.
	Run(ctx context.Context, jobExecution *model.JobExecution) error
}

// StepExecutionListener is notified around a step execution.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}

// ChunkListener is notified around each chunk transaction.
type ChunkListener interface {
	BeforeChunk(ctx context.Context, stepExecution *model.StepExecution)
	AfterChunk(ctx context.Context, stepExecution *model.StepExecution)
	AfterChunkError(ctx context.Context, stepExecution *model.StepExecution, err error)
}

// JobExecutionListener is notified around a job execution.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// JobParametersIncrementer derives the parameters of the next run.
type JobParametersIncrementer interface {
	// GetNext returns a copy of params carrying the next run identifier.
	GetNext(params model.JobParameters) model.JobParameters
}
