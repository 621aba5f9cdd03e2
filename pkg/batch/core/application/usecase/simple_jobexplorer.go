package usecase

import (
	"context"
	"fmt"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// SimpleJobExplorer is a simple implementation of the JobExplorer interface.
// It queries batch metadata using a JobRepository.
type SimpleJobExplorer struct {
	jobRepository repository.JobRepository
}

// Verify that SimpleJobExplorer implements the JobExplorer interface.
var _ JobExplorer = (*SimpleJobExplorer)(nil)

// NewSimpleJobExplorer creates a new instance of SimpleJobExplorer.
func NewSimpleJobExplorer(jobRepository repository.JobRepository) *SimpleJobExplorer {
	return &SimpleJobExplorer{
		jobRepository: jobRepository,
	}
}

// GetJobExecution retrieves a JobExecution by its ID.
func (e *SimpleJobExplorer) GetJobExecution(ctx context.Context, executionID string) (*model.JobExecution, error) {
	jobExecution, err := e.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, exception.NewDataAccessError("job_explorer", fmt.Sprintf("failed to retrieve JobExecution (ID: %s)", executionID), err)
	}
	logger.Debugf("Retrieved JobExecution (ID: %s) from JobRepository.", executionID)
	return jobExecution, nil
}

// GetJobExecutions retrieves all JobExecutions associated with the specified JobInstance, oldest first.
func (e *SimpleJobExplorer) GetJobExecutions(ctx context.Context, instanceID string) ([]*model.JobExecution, error) {
	jobInstance, err := e.GetJobInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	jobExecutions, err := e.jobRepository.FindJobExecutionsByJobInstance(ctx, jobInstance)
	if err != nil {
		return nil, exception.NewDataAccessError("job_explorer", fmt.Sprintf("failed to retrieve JobExecutions of JobInstance (ID: %s)", instanceID), err)
	}
	logger.Debugf("Retrieved %d JobExecutions associated with JobInstance (ID: %s).", len(jobExecutions), instanceID)
	return jobExecutions, nil
}

// GetLastJobExecution retrieves the latest JobExecution for a given JobInstance.
// It returns nil without error when the instance has never been executed.
func (e *SimpleJobExplorer) GetLastJobExecution(ctx context.Context, instanceID string) (*model.JobExecution, error) {
	jobExecutions, err := e.GetJobExecutions(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if len(jobExecutions) == 0 {
		logger.Warnf("JobInstance (ID: %s) has no JobExecution.", instanceID)
		return nil, nil
	}
	return jobExecutions[len(jobExecutions)-1], nil
}

// GetJobInstance retrieves a JobInstance by its ID.
func (e *SimpleJobExplorer) GetJobInstance(ctx context.Context, instanceID string) (*model.JobInstance, error) {
	jobInstance, err := e.jobRepository.FindJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, exception.NewDataAccessError("job_explorer", fmt.Sprintf("failed to retrieve JobInstance (ID: %s)", instanceID), err)
	}
	return jobInstance, nil
}

// GetJobInstanceCount returns how many instances of jobName were launched.
func (e *SimpleJobExplorer) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	count, err := e.jobRepository.GetJobInstanceCount(ctx, jobName)
	if err != nil {
		return 0, exception.NewDataAccessError("job_explorer", fmt.Sprintf("failed to count JobInstances of '%s'", jobName), err)
	}
	return count, nil
}

// GetJobNames retrieves all job names known to the repository.
func (e *SimpleJobExplorer) GetJobNames(ctx context.Context) ([]string, error) {
	jobNames, err := e.jobRepository.GetJobNames(ctx)
	if err != nil {
		return nil, exception.NewDataAccessError("job_explorer", "failed to retrieve job names", err)
	}
	logger.Debugf("Retrieved %d job names.", len(jobNames))
	return jobNames, nil
}

// GetParameters retrieves the JobParameters for the specified JobExecution.
func (e *SimpleJobExplorer) GetParameters(ctx context.Context, executionID string) (model.JobParameters, error) {
	jobExecution, err := e.GetJobExecution(ctx, executionID)
	if err != nil {
		return model.NewJobParameters(), err
	}
	return jobExecution.Parameters, nil
}
