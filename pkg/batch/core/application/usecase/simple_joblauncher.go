package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// SimpleJobLauncher implements JobLauncher for local, synchronous execution.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	registry      *JobRegistry
	incrementer   port.JobParametersIncrementer
	maskedKeys    []string

	// activeJobCancellations holds the cancel functions for running jobs.
	activeJobCancellations map[string]context.CancelFunc
	mu                     sync.Mutex
}

// Verify that SimpleJobLauncher implements the JobLauncher interface.
var _ JobLauncher = (*SimpleJobLauncher)(nil)

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
//
// Parameters:
//
//	repo: Where instances and executions are persisted.
//	registry: The jobs that can be launched.
//	incrementer: Assigns run.id to each launch. When nil, parameters are used as given
//	  and launching a COMPLETED instance again is rejected.
func NewSimpleJobLauncher(repo repository.JobRepository, registry *JobRegistry, incrementer port.JobParametersIncrementer) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository:          repo,
		registry:               registry,
		incrementer:            incrementer,
		activeJobCancellations: make(map[string]context.CancelFunc),
	}
}

// SetMaskedParameterKeys sets the parameter keys whose values are masked in logs.
func (l *SimpleJobLauncher) SetMaskedParameterKeys(keys []string) {
	l.maskedKeys = keys
}

// RegisterCancelFunc registers the cancel function for a running job execution.
func (l *SimpleJobLauncher) RegisterCancelFunc(executionID string, cancelFunc context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeJobCancellations[executionID] = cancelFunc
	logger.Debugf("Registered CancelFunc for JobExecution (ID: %s).", executionID)
}

// UnregisterCancelFunc unregisters the cancel function for a running job execution.
func (l *SimpleJobLauncher) UnregisterCancelFunc(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.activeJobCancellations[executionID]; ok {
		delete(l.activeJobCancellations, executionID)
		logger.Debugf("Unregistered CancelFunc for JobExecution (ID: %s).", executionID)
	}
}

// GetCancelFunc retrieves the cancel function for the specified JobExecution ID.
func (l *SimpleJobLauncher) GetCancelFunc(executionID string) (context.CancelFunc, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cancelFunc, ok := l.activeJobCancellations[executionID]
	return cancelFunc, ok
}

// ActiveExecutionIDs returns the IDs of the executions currently running, sorted.
func (l *SimpleJobLauncher) ActiveExecutionIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.activeJobCancellations))
	for id := range l.activeJobCancellations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Launch creates a JobInstance and JobExecution for jobName and runs the job
// to completion on the calling goroutine.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	const op = "job_launcher"

	job, err := l.registry.GetJob(jobName)
	if err != nil {
		return nil, err
	}

	if jobParameters.Params == nil {
		jobParameters = model.NewJobParameters()
	}
	if l.incrementer != nil {
		jobParameters = l.incrementer.GetNext(jobParameters)
	}
	logger.Infof("Launching Job '%s'. Parameters: %s", jobName, jobParameters.Masked(l.maskedKeys))

	jobInstance, err := l.findOrCreateInstance(ctx, jobName, jobParameters)
	if err != nil {
		return nil, err
	}

	jobExecution := model.NewJobExecution(jobInstance)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewDataAccessError(op, "failed to save JobExecution", err)
	}
	logger.Debugf("Saved JobExecution (ID: %s) for JobInstance (ID: %s, RunID: %d).", jobExecution.ID, jobInstance.ID, jobInstance.RunID)

	jobCtx, cancel := context.WithCancel(ctx)
	l.RegisterCancelFunc(jobExecution.ID, cancel)
	defer func() {
		l.UnregisterCancelFunc(jobExecution.ID)
		cancel()
	}()

	if runErr := job.Run(jobCtx, jobExecution); runErr != nil {
		logger.Errorf("Job '%s' (Execution ID: %s) ended with an error: %v", jobName, jobExecution.ID, runErr)
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished. Status: %s, ExitStatus: %s",
		jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	return jobExecution, nil
}

func (l *SimpleJobLauncher) findOrCreateInstance(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	const op = "job_launcher"

	existing, err := l.jobRepository.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
	if err != nil && !errors.Is(err, repository.ErrJobInstanceNotFound) {
		return nil, exception.NewDataAccessError(op, "failed to search for existing JobInstance", err)
	}
	if existing != nil {
		executions, err := l.jobRepository.FindJobExecutionsByJobInstance(ctx, existing)
		if err != nil {
			return nil, exception.NewDataAccessError(op, "failed to load executions of existing JobInstance", err)
		}
		for _, je := range executions {
			switch je.Status {
			case model.BatchStatusCompleted:
				return nil, exception.NewBatchError(op, exception.KindBusinessRule,
					fmt.Sprintf("JobInstance (ID: %s) of '%s' is already complete; supply a new run.id to run it again", existing.ID, jobName), nil)
			case model.BatchStatusReady, model.BatchStatusExecuting:
				return nil, exception.NewBatchError(op, exception.KindBusinessRule,
					fmt.Sprintf("JobExecution (ID: %s) of '%s' is still running", je.ID, jobName), nil)
			}
		}
		logger.Infof("Creating new JobExecution for existing JobInstance (ID: %s).", existing.ID)
		return existing, nil
	}

	instance := model.NewJobInstance(jobName, params)
	if err := l.jobRepository.SaveJobInstance(ctx, instance); err != nil {
		return nil, exception.NewDataAccessError(op, fmt.Sprintf("failed to save new JobInstance for '%s'", jobName), err)
	}
	logger.Debugf("Created JobInstance (ID: %s, JobName: %s, RunID: %d).", instance.ID, jobName, instance.RunID)
	return instance, nil
}
