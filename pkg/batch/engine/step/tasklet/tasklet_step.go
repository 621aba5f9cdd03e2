package tasklet

import (
	"context"
	"fmt"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/chunkbatch/pkg/batch/core/metrics"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// TaskletStep is an implementation of port.Step that invokes a Tasklet until
// it reports FINISHED.
type TaskletStep struct {
	name                   string
	tasklet                port.Tasklet
	jobRepository          repository.JobRepository
	stepExecutionListeners []port.StepExecutionListener
	maxIterations          int

	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// NewTaskletStep creates a new TaskletStep with no iteration bound.
func NewTaskletStep(name string, tasklet port.Tasklet, jobRepository repository.JobRepository) (*TaskletStep, error) {
	if name == "" {
		return nil, exception.NewConfigurationError("TaskletStep", "step name must not be empty")
	}
	if tasklet == nil || jobRepository == nil {
		return nil, exception.NewConfigurationError(name, "tasklet and job repository are required")
	}
	return &TaskletStep{
		name:           name,
		tasklet:        tasklet,
		jobRepository:  jobRepository,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}, nil
}

// StepName returns the step name.
func (s *TaskletStep) StepName() string {
	return s.name
}

// WithMaxIterations bounds the number of CONTINUABLE invocations. When the
// bound is reached the step ends STOPPED. n <= 0 means unbounded.
func (s *TaskletStep) WithMaxIterations(n int) *TaskletStep {
	s.maxIterations = n
	return s
}

// SetMetricRecorder replaces the metric recorder.
func (s *TaskletStep) SetMetricRecorder(recorder metrics.MetricRecorder) {
	if recorder != nil {
		s.metricRecorder = recorder
	}
}

// SetTracer replaces the tracer.
func (s *TaskletStep) SetTracer(tracer metrics.Tracer) {
	if tracer != nil {
		s.tracer = tracer
	}
}

// AddStepExecutionListener registers l.
func (s *TaskletStep) AddStepExecutionListener(l port.StepExecutionListener) {
	s.stepExecutionListeners = append(s.stepExecutionListeners, l)
}

// Execute runs the Tasklet. An error ends the step FAILED immediately; a
// custom ExitStatus set by the tasklet is kept for flow routing.
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) (err error) {
	logger.Infof("TaskletStep '%s' executing.", s.name)

	ctx, endSpan := s.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
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

	stopped := false
	iterations := 0
	for {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		if s.maxIterations > 0 && iterations >= s.maxIterations {
			logger.Warnf("TaskletStep '%s': reached the iteration limit of %d.", s.name, s.maxIterations)
			stopped = true
			break
		}
		iterations++

		var status model.RepeatStatus
		status, err = s.tasklet.Execute(ctx, stepExecution)
		if err != nil {
			break
		}
		if !status.IsContinuable() {
			break
		}
		logger.Debugf("TaskletStep '%s': iteration %d is CONTINUABLE.", s.name, iterations)
	}
	stepExecution.ExecutionContext.Put(fmt.Sprintf("%s.iterations", s.name), iterations)

	switch {
	case err != nil:
		logger.Errorf("TaskletStep '%s' failed: %v", s.name, err)
		s.tracer.RecordError(ctx, s.name, err)
		stepExecution.MarkAsFailed(err)
	case stopped:
		stepExecution.MarkAsStopped()
	default:
		stepExecution.MarkAsCompleted()
	}

	for _, l := range s.stepExecutionListeners {
		l.AfterStep(ctx, stepExecution)
	}
	s.metricRecorder.RecordStepEnd(ctx, stepExecution)

	if updateErr := s.jobRepository.UpdateStepExecution(persistCtx, stepExecution); updateErr != nil {
		logger.Errorf("TaskletStep '%s': failed to update final StepExecution state: %v", s.name, updateErr)
		if err == nil {
			err = exception.NewDataAccessError(s.name, "failed to update final StepExecution state", updateErr)
		}
	}

	logger.Infof("TaskletStep '%s' finished after %d iteration(s). ExitStatus: %s", s.name, iterations, stepExecution.ExitStatus)
	return err
}

// Verify that TaskletStep implements the port.Step interface.
var _ port.Step = (*TaskletStep)(nil)
