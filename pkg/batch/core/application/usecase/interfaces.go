package usecase

import (
	"context"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// JobLauncher is an interface for launching a Job with JobParameters.
type JobLauncher interface {
	// Launch runs the named Job synchronously and returns its JobExecution.
	// The error returned here indicates an error in the launch process itself,
	// not an error in the job's execution; that is reported by the execution status.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}

// JobOperator is an interface for performing operations on running jobs.
type JobOperator interface {
	// Stop requests the specified JobExecution to stop. The job observes the
	// request at its next chunk or iteration boundary and ends STOPPED.
	Stop(ctx context.Context, executionID string) error

	// RunningExecutions returns the IDs of the executions currently running in this process.
	RunningExecutions() []string
}

// JobExplorer is an interface for querying batch metadata (JobInstance, JobExecution, StepExecution).
type JobExplorer interface {
	// GetJobExecution retrieves a JobExecution by its ID.
	GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error)

	// GetJobExecutions retrieves all JobExecutions associated with the specified JobInstance.
	GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error)

	// GetLastJobExecution retrieves the latest JobExecution for a given JobInstance.
	GetLastJobExecution(ctx context.Context, instanceID string) (*model.JobExecution, error)

	// GetJobInstance retrieves a JobInstance by its ID.
	GetJobInstance(ctx context.Context, instanceID string) (*model.JobInstance, error)

	// GetJobInstanceCount returns how many instances of jobName were launched.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)

	// GetJobNames retrieves all job names known to the repository.
	GetJobNames(ctx context.Context) ([]string, error)

	// GetParameters retrieves the JobParameters for the specified JobExecution.
	GetParameters(ctx context.Context, executionID string) (model.JobParameters, error)
}
