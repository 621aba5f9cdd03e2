package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
)

// ErrJobInstanceNotFound is returned when a JobInstance is not found.
var ErrJobInstanceNotFound = errors.New("job instance not found")

// JobInstance defines operations for persisting and retrieving job instance metadata.
type JobInstance interface {
	// SaveJobInstance persists a new JobInstance.
	SaveJobInstance(ctx context.Context, instance *model.JobInstance) error
	// FindJobInstanceByID finds a JobInstance by its ID.
	FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error)
	// FindJobInstanceByJobNameAndParameters finds a JobInstance by job name and exact parameters.
	FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error)
	// GetJobInstanceCount returns the count of JobInstances for a given job name.
	GetJobInstanceCount(ctx context.Context, jobName string) (int, error)
	// GetJobNames returns all distinct job names in ascending order.
	GetJobNames(ctx context.Context) ([]string, error)
	// GetMaxRunID returns the highest run id ever assigned, zero when none.
	GetMaxRunID(ctx context.Context) (int64, error)
}
