// Package item implements the chunk-oriented step: read up to chunk-size
// items, process them in read order, write the survivors inside one
// transaction, and repeat until the reader is exhausted.
package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	itemsupport "github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/chunkbatch/pkg/batch/core/metrics"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ChunkStep is an implementation of port.Step for chunk-oriented processing.
// I is the type read, O the type written.
type ChunkStep[I, O any] struct {
	name                   string
	reader                 port.ItemReader[I]
	processor              port.ItemProcessor[I, O]
	writer                 port.ItemWriter[O]
	chunkSize              int
	jobRepository          repository.JobRepository
	txManager              tx.TransactionManager
	stepExecutionListeners []port.StepExecutionListener
	chunkListeners         []port.ChunkListener

	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Verify that ChunkStep implements the port.Step interface.
var _ port.Step = (*ChunkStep[any, any])(nil)

// NewChunkStep creates a new ChunkStep.
//
// Parameters:
//
//	name: The step name, unique within its job.
//	reader, processor, writer: The item pipeline. Use item.NewPassThroughItemProcessor when no transformation is needed.
//	chunkSize: The maximum number of items per transaction (>= 1).
//	jobRepository: The repository the step persists its StepExecution to.
//	txManager: The transaction manager wrapping each chunk.
//
// Returns:
//
//	*ChunkStep[I, O]: The step, with no-op metrics and tracing.
//	error: A ConfigurationError when a collaborator is missing or chunkSize < 1.
func NewChunkStep[I, O any](
	name string,
	reader port.ItemReader[I],
	processor port.ItemProcessor[I, O],
	writer port.ItemWriter[O],
	chunkSize int,
	jobRepository repository.JobRepository,
	txManager tx.TransactionManager,
) (*ChunkStep[I, O], error) {
	switch {
	case name == "":
		return nil, exception.NewConfigurationError("ChunkStep", "step name must not be empty")
	case reader == nil || processor == nil || writer == nil:
		return nil, exception.NewConfigurationError(name, "reader, processor and writer are required")
	case chunkSize < 1:
		return nil, exception.NewConfigurationError(name, fmt.Sprintf("chunk size must be at least 1, got %d", chunkSize))
	case jobRepository == nil:
		return nil, exception.NewConfigurationError(name, "job repository is required")
	}
	if txManager == nil {
		txManager = tx.NewNoOpTransactionManager()
	}
	return &ChunkStep[I, O]{
		name:           name,
		reader:         reader,
		processor:      processor,
		writer:         writer,
		chunkSize:      chunkSize,
		jobRepository:  jobRepository,
		txManager:      txManager,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}, nil
}

// StepName returns the step name.
func (s *ChunkStep[I, O]) StepName() string {
	return s.name
}

// ChunkSize returns the configured chunk size.
func (s *ChunkStep[I, O]) ChunkSize() int {
	return s.chunkSize
}

// SetMetricRecorder replaces the metric recorder.
func (s *ChunkStep[I, O]) SetMetricRecorder(recorder metrics.MetricRecorder) {
	if recorder != nil {
		s.metricRecorder = recorder
	}
}

// SetTracer replaces the tracer.
func (s *ChunkStep[I, O]) SetTracer(tracer metrics.Tracer) {
	if tracer != nil {
		s.tracer = tracer
	}
}

// AddStepExecutionListener registers l.
func (s *ChunkStep[I, O]) AddStepExecutionListener(l port.StepExecutionListener) {
	s.stepExecutionListeners = append(s.stepExecutionListeners, l)
}

// AddChunkListener registers l.
func (s *ChunkStep[I, O]) AddChunkListener(l port.ChunkListener) {
	s.chunkListeners = append(s.chunkListeners, l)
}

// Execute runs the chunk loop and leaves the outcome on stepExecution.
// Cancellation of ctx is honoured between chunks and ends the step STOPPED.
func (s *ChunkStep[I, O]) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error {
	logger.Infof("ChunkStep '%s' executing (chunk size %d).", s.name, s.chunkSize)

	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
	// Bookkeeping outlives a cancelled run.
	persistCtx := context.WithoutCancel(ctx)

	stepExecution.MarkAsStarted()
	s.metricRecorder.RecordStepStart(ctx, stepExecution)
	if err := s.jobRepository.UpdateStepExecution(persistCtx, stepExecution); err != nil {
		stepExecution.MarkAsFailed(err)
		return exception.NewDataAccessError(s.name, "failed to update StepExecution status to EXECUTING", err)
	}
	for _, l := range s.stepExecutionListeners {
		l.BeforeStep(ctx, stepExecution)
	}

	stopped, stepErr := s.run(ctx, stepExecution)

	if closeErr := s.close(persistCtx); closeErr != nil {
		logger.Warnf("ChunkStep '%s': %v", s.name, closeErr)
		stepExecution.AddFailure(closeErr)
		if stepErr == nil {
			stepErr = closeErr
		}
	}
	s.collectExecutionContext(persistCtx, stepExecution)

	switch {
	case stepErr != nil:
		s.tracer.RecordError(ctx, s.name, stepErr)
		stepExecution.MarkAsFailed(stepErr)
	case stopped:
		logger.Warnf("ChunkStep '%s': stopped at a chunk boundary: %v", s.name, ctx.Err())
		stepExecution.MarkAsStopped()
	default:
		stepExecution.MarkAsCompleted()
	}

	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
	s.metricRecorder.RecordStepEnd(ctx, stepExecution)

	if updateErr := s.jobRepository.UpdateStepExecution(persistCtx, stepExecution); updateErr != nil {
		logger.Errorf("ChunkStep '%s': failed to update final StepExecution state: %v", s.name, updateErr)
		if stepErr == nil {
			stepErr = exception.NewDataAccessError(s.name, "failed to update final StepExecution state", updateErr)
		}
	}

	logger.Infof("ChunkStep '%s' finished. Status: %s, ExitStatus: %s, read=%d filtered=%d written=%d commits=%d rollbacks=%d",
		s.name, stepExecution.Status, stepExecution.ExitStatus,
		stepExecution.ReadCount, stepExecution.FilterCount, stepExecution.WriteCount,
		stepExecution.CommitCount, stepExecution.RollbackCount)
	return stepErr
}

// run opens the streams and processes chunks until the input is exhausted,
// a chunk fails or ctx is cancelled.
func (s *ChunkStep[I, O]) run(ctx context.Context, stepExecution *model.StepExecution) (stopped bool, err error) {
	if err := s.reader.Open(ctx, stepExecution.ExecutionContext); err != nil {
		return false, exception.NewBatchError(s.name, exception.KindOf(err), "failed to open ItemReader", err)
	}
	if err := s.writer.Open(ctx, stepExecution.ExecutionContext); err != nil {
		return false, exception.NewBatchError(s.name, exception.KindOf(err), "failed to open ItemWriter", err)
	}

	for {
		if ctx.Err() != nil {
			return true, nil
		}
		exhausted, err := s.processChunk(ctx, stepExecution)
		if err != nil {
			return false, err
		}
		if exhausted {
			logger.Debugf("ChunkStep '%s': input exhausted.", s.name)
			return false, nil
		}
	}
}

// processChunk reads, processes and writes one chunk. The transaction is
// begun with the first item, so an exhausted reader never opens one.
func (s *ChunkStep[I, O]) processChunk(ctx context.Context, stepExecution *model.StepExecution) (exhausted bool, err error) {
	first, err := s.reader.Read(ctx)
	if errors.Is(err, port.ErrNoMoreItems) {
		return true, nil
	}
	if err != nil {
		return false, exception.NewBatchError(s.name, exception.KindOf(err), "item read failed", err)
	}

	t, err := s.txManager.Begin(ctx)
	if err != nil {
		return false, exception.NewDataAccessError(s.name, "failed to begin transaction for chunk", err)
	}
	for _, l := range s.chunkListeners {
		l.BeforeChunk(ctx, stepExecution)
	}

	chunk := make([]O, 0, s.chunkSize)
	item, read := first, 1
	for {
		stepExecution.ReadCount++
		s.metricRecorder.RecordItemRead(ctx, s.name)

		out, procErr := s.processor.Process(ctx, item)
		if procErr != nil {
			return false, s.rollback(ctx, t, stepExecution,
				exception.NewBatchError(s.name, exception.KindOf(procErr), "item process failed", procErr))
		}
		stepExecution.ProcessCount++
		if itemsupport.IsFiltered(out) {
			stepExecution.FilterCount++
			s.metricRecorder.RecordItemFilter(ctx, s.name)
		} else {
			s.metricRecorder.RecordItemProcess(ctx, s.name)
			chunk = append(chunk, out)
		}

		if read == s.chunkSize {
			break
		}
		next, readErr := s.reader.Read(ctx)
		if errors.Is(readErr, port.ErrNoMoreItems) {
			exhausted = true
			break
		}
		if readErr != nil {
			return false, s.rollback(ctx, t, stepExecution,
				exception.NewBatchError(s.name, exception.KindOf(readErr), "item read failed", readErr))
		}
		item = next
		read++
	}

	if len(chunk) > 0 {
		if writeErr := s.writer.Write(ctx, t, chunk); writeErr != nil {
			return false, s.rollback(ctx, t, stepExecution,
				exception.NewBatchError(s.name, exception.KindOf(writeErr), "item write failed", writeErr))
		}
		s.metricRecorder.RecordItemWrite(ctx, s.name, len(chunk))
	}

	if commitErr := s.txManager.Commit(t); commitErr != nil {
		err := exception.NewDataAccessError(s.name, "failed to commit transaction for chunk", commitErr)
		for _, l := range s.chunkListeners {
			l.AfterChunkError(ctx, stepExecution, err)
		}
		s.metricRecorder.RecordChunkRollback(ctx, s.name)
		stepExecution.RollbackCount++
		return false, err
	}
	stepExecution.WriteCount += len(chunk)
	stepExecution.CommitCount++
	s.metricRecorder.RecordChunkCommit(ctx, s.name, len(chunk))
	for _, l := range s.chunkListeners {
		l.AfterChunk(ctx, stepExecution)
	}

	s.collectExecutionContext(ctx, stepExecution)
	if err := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); err != nil {
		logger.Warnf("ChunkStep '%s': failed to persist progress after commit: %v", s.name, err)
	}
	return exhausted, nil
}

// rollback rolls t back and returns cause so the caller can fail the step.
func (s *ChunkStep[I, O]) rollback(ctx context.Context, t tx.Tx, stepExecution *model.StepExecution, cause error) error {
	if err := s.txManager.Rollback(t); err != nil {
		logger.Errorf("ChunkStep '%s': rollback failed: %v", s.name, err)
		stepExecution.AddFailure(exception.NewDataAccessError(s.name, "failed to roll back chunk transaction", err))
	}
	stepExecution.RollbackCount++
	s.metricRecorder.RecordChunkRollback(ctx, s.name)
	s.tracer.RecordEvent(ctx, "chunk.rollback", map[string]interface{}{
		"step":  s.name,
		"error": cause.Error(),
	})
	for _, l := range s.chunkListeners {
		l.AfterChunkError(ctx, stepExecution, cause)
	}
	return cause
}

// close closes both streams and combines their errors.
func (s *ChunkStep[I, O]) close(ctx context.Context) error {
	var result *multierror.Error
	if err := s.reader.Close(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close ItemReader: %w", err))
	}
	if err := s.writer.Close(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close ItemWriter: %w", err))
	}
	return result.ErrorOrNil()
}

// collectExecutionContext copies the state exposed by the reader and writer
// into the StepExecution's ExecutionContext.
func (s *ChunkStep[I, O]) collectExecutionContext(ctx context.Context, stepExecution *model.StepExecution) {
	if stepExecution.ExecutionContext == nil {
		stepExecution.ExecutionContext = model.NewExecutionContext()
	}
	for _, stream := range []interface{}{s.reader, s.writer} {
		aware, ok := stream.(port.ExecutionContextAware)
		if !ok {
			continue
		}
		ec, err := aware.GetExecutionContext(ctx)
		if err != nil {
			logger.Warnf("ChunkStep '%s': failed to get ExecutionContext from %T: %v", s.name, stream, err)
			continue
		}
		for k, v := range ec {
			stepExecution.ExecutionContext.Put(k, v)
		}
	}
}
