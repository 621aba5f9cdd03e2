package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// ErrJobExecutionNotFound is the error returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// JobExecution defines operations for persisting and retrieving job executions.
type JobExecution interface {
	// SaveJobExecution persists a new JobExecution.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// UpdateJobExecution updates the state of an existing JobExecution.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// FindJobExecutionByID finds a JobExecution by its ID, with its StepExecutions in execution order.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
	// FindJobExecutionsByJobInstance finds all JobExecutions of the specified JobInstance, oldest first.
	FindJobExecutionsByJobInstance(ctx context.Context, jobInstance *model.JobInstance) ([]*model.JobExecution, error)
}
