package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
)

// SaveJobInstance persists a new JobInstance.
// It returns an error if a JobInstance with the same ID already exists.
func (r *InMemoryJobRepository) SaveJobInstance(ctx context.Context, jobInstance *model.JobInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobInstances[jobInstance.ID]; exists {
		return fmt.Errorf("JobInstance with ID %s already exists", jobInstance.ID)
	}
	clone := *jobInstance
	clone.Parameters = jobInstance.Parameters.Copy()
	r.jobInstances[jobInstance.ID] = &clone
	return nil
}

// FindJobInstanceByID finds a JobInstance by its ID.
func (r *InMemoryJobRepository) FindJobInstanceByID(ctx context.Context, id string) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ji, ok := r.jobInstances[id]
	if !ok {
		return nil, repository.ErrJobInstanceNotFound
	}
	clone := *ji
	return &clone, nil
}

// FindJobInstanceByJobNameAndParameters finds a JobInstance by job name and exact parameters.
func (r *InMemoryJobRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params model.JobParameters) (*model.JobInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ji := range r.jobInstances {
		if ji.JobName == jobName && ji.Parameters.Equal(params) {
			clone := *ji
			return &clone, nil
		}
	}
	return nil, repository.ErrJobInstanceNotFound
}

// GetJobInstanceCount returns the count of JobInstances for a given job name.
func (r *InMemoryJobRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, ji := range r.jobInstances {
		if ji.JobName == jobName {
			count++
		}
	}
	return count, nil
}

// GetJobNames returns all distinct job names in ascending order.
func (r *InMemoryJobRepository) GetJobNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unique := make(map[string]struct{})
	for _, ji := range r.jobInstances {
		unique[ji.JobName] = struct{}{}
	}
	names := make([]string, 0, len(unique))
	for name := range unique {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetMaxRunID returns the highest run id of all saved instances.
func (r *InMemoryJobRepository) GetMaxRunID(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var max int64
	for _, ji := range r.jobInstances {
		if ji.RunID > max {
			max = ji.RunID
		}
	}
	return max, nil
}
