// Package runner executes jobs: a FlowJob runs its entry step and follows the
// transition table of its FlowDefinition until a terminal action.
package runner

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

// FlowJob is an implementation of port.Job that executes its steps following
// a FlowDefinition. Each FlowJob owns its steps.
type FlowJob struct {
	name           string
	flow           *model.FlowDefinition
	steps          map[string]port.Step
	stepOrder      []string
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

// Verify that FlowJob implements the port.Job interface.
var _ port.Job = (*FlowJob)(nil)

// NewFlowJob creates a FlowJob and validates its flow: the start step and
// every transition target must be among steps, and step names must be unique.
func NewFlowJob(name string, flow *model.FlowDefinition, jobRepository repository.JobRepository, steps ...port.Step) (*FlowJob, error) {
	if name == "" {
		return nil, exception.NewConfigurationError("FlowJob", "job name must not be empty")
	}
	if flow == nil {
		return nil, exception.NewConfigurationError(name, "flow definition is required")
	}
	if jobRepository == nil {
		return nil, exception.NewConfigurationError(name, "job repository is required")
	}

	byName := make(map[string]port.Step, len(steps))
	known := make(map[string]bool, len(steps))
	order := make([]string, 0, len(steps))
	for _, s := range steps {
		stepName := s.StepName()
		if known[stepName] {
			return nil, exception.NewConfigurationError(name, fmt.Sprintf("step '%s' is defined twice", stepName))
		}
		byName[stepName] = s
		known[stepName] = true
		order = append(order, stepName)
	}
	if err := flow.Validate(known); err != nil {
		return nil, exception.NewBatchError(name, exception.KindConfiguration, "invalid flow", err)
	}

	return &FlowJob{
		name:           name,
		flow:           flow,
		steps:          byName,
		stepOrder:      order,
		jobRepository:  jobRepository,
		metricRecorder: metrics.NewNoOpMetricRecorder(),
		tracer:         metrics.NewNoOpTracer(),
	}, nil
}

// JobName returns the job name.
func (j *FlowJob) JobName() string {
	return j.name
}

// Flow returns the job flow definition.
func (j *FlowJob) Flow() *model.FlowDefinition {
	return j.flow
}

// StepNames returns the names of the job's steps in declaration order.
func (j *FlowJob) StepNames() []string {
	return append([]string(nil), j.stepOrder...)
}

// Step returns the step called name.
func (j *FlowJob) Step(name string) (port.Step, bool) {
	s, ok := j.steps[name]
	return s, ok
}

// AddJobExecutionListener registers l.
func (j *FlowJob) AddJobExecutionListener(l port.JobExecutionListener) {
	j.jobListeners = append(j.jobListeners, l)
}

// SetMetricRecorder replaces the metric recorder.
func (j *FlowJob) SetMetricRecorder(recorder metrics.MetricRecorder) {
	if recorder != nil {
		j.metricRecorder = recorder
	}
}

// SetTracer replaces the tracer.
func (j *FlowJob) SetTracer(tracer metrics.Tracer) {
	if tracer != nil {
		j.tracer = tracer
	}
}

// Run executes the flow and leaves the outcome on jobExecution.
//
// After each step the transition for (step, exit status) is resolved. No
// matching transition ends the job with the step's status. A STOP action
// ends it STOPPED and a FAIL action ends it FAILED.
//
// Returns:
//
//	error: The failure that ended the job FAILED, or a repository error. nil
//	for COMPLETED and STOPPED jobs.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution) (err error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s, run.id: %d).", j.name, jobExecution.ID, jobExecution.RunID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()
	persistCtx := context.WithoutCancel(ctx)

	jobExecution.MarkAsStarted()
	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	if err := j.jobRepository.UpdateJobExecution(persistCtx, jobExecution); err != nil {
		jobExecution.MarkAsFailed(err)
		return exception.NewDataAccessError(j.name, "failed to update JobExecution status to EXECUTING", err)
	}
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}

	defer func() {
		for _, l := range j.jobListeners {
			l.AfterJob(ctx, jobExecution)
		}
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)
		if updateErr := j.jobRepository.UpdateJobExecution(persistCtx, jobExecution); updateErr != nil {
			logger.Errorf("Job '%s': failed to update final JobExecution state: %v", j.name, updateErr)
			if err == nil {
				err = exception.NewDataAccessError(j.name, "failed to update final JobExecution state", updateErr)
			}
		}
		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	}()

	current := j.flow.StartStep
	for {
		if ctx.Err() != nil {
			logger.Warnf("Job '%s': context cancelled before step '%s': %v", j.name, current, ctx.Err())
			jobExecution.MarkAsStopped()
			return nil
		}

		stepExecution, stepErr := j.executeStep(ctx, jobExecution, current)
		if stepExecution == nil {
			jobExecution.MarkAsFailed(stepErr)
			return stepErr
		}

		transition, found := j.flow.Resolve(current, stepExecution.ExitStatus)
		if !found {
			logger.Debugf("Job '%s': no transition for %s[%s], ending with the step's status.", j.name, current, stepExecution.ExitStatus)
			jobExecution.EndWith(stepExecution.Status, stepExecution.ExitStatus)
			if stepExecution.Status == model.BatchStatusFailed {
				return j.failure(stepExecution, stepErr)
			}
			return nil
		}

		logger.Infof("Job '%s': transition %s", j.name, transition)
		switch {
		case transition.To != "":
			current = transition.To
		case transition.Stop:
			jobExecution.MarkAsStopped()
			return nil
		case transition.Fail:
			failure := exception.NewBusinessRuleError(j.name,
				fmt.Sprintf("flow failed at step '%s' with exit status %s", current, stepExecution.ExitStatus))
			jobExecution.MarkAsFailed(failure)
			return failure
		default:
			jobExecution.MarkAsCompleted()
			return nil
		}
	}
}

// executeStep creates, persists and runs the StepExecution of stepName. A nil
// StepExecution means the step could not be started at all.
func (j *FlowJob) executeStep(ctx context.Context, jobExecution *model.JobExecution, stepName string) (*model.StepExecution, error) {
	step := j.steps[stepName]
	stepExecution := model.NewStepExecution(jobExecution, stepName)
	jobExecution.CurrentStepName = stepName

	persistCtx := context.WithoutCancel(ctx)
	if err := j.jobRepository.SaveStepExecution(persistCtx, stepExecution); err != nil {
		return nil, exception.NewDataAccessError(j.name, fmt.Sprintf("failed to save StepExecution of step '%s'", stepName), err)
	}

	stepErr := step.Execute(ctx, jobExecution, stepExecution)
	if stepErr != nil {
		logger.Errorf("Job '%s': step '%s' failed: %v", j.name, stepName, stepErr)
		jobExecution.AddFailure(stepErr)
		j.tracer.RecordError(ctx, j.name, stepErr)
	} else {
		logger.Infof("Job '%s': step '%s' ended. Status: %s, ExitStatus: %s", j.name, stepName, stepExecution.Status, stepExecution.ExitStatus)
	}

	if err := j.jobRepository.UpdateJobExecution(persistCtx, jobExecution); err != nil {
		logger.Warnf("Job '%s': failed to persist progress after step '%s': %v", j.name, stepName, err)
	}
	return stepExecution, stepErr
}

func (j *FlowJob) failure(stepExecution *model.StepExecution, stepErr error) error {
	if stepErr != nil {
		return stepErr
	}
	if last := stepExecution.LastFailure(); last != nil {
		return last
	}
	return exception.NewBatchErrorf(j.name, "step '%s' failed", stepExecution.StepName)
}
