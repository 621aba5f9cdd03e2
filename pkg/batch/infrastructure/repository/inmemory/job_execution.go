package inmemory

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
)

// snapshotJobExecution copies je without its step executions and back references.
func snapshotJobExecution(je *model.JobExecution) *model.JobExecution {
	clone := *je
	clone.StepExecutions = nil
	clone.Failures = append([]error(nil), je.Failures...)
	clone.ExecutionContext = je.ExecutionContext.Copy()
	return &clone
}

// SaveJobExecution persists a new JobExecution.
// It returns an error if a JobExecution with the same ID already exists.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; exists {
		return fmt.Errorf("JobExecution with ID %s already exists", jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJobExecution(jobExecution)
	return nil
}

// UpdateJobExecution updates an existing JobExecution.
// It returns an error if the JobExecution with the given ID is not found.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobExecutions[jobExecution.ID]; !exists {
		return fmt.Errorf("%w: %s", repository.ErrJobExecutionNotFound, jobExecution.ID)
	}
	r.jobExecutions[jobExecution.ID] = snapshotJobExecution(jobExecution)
	return nil
}

// FindJobExecutionByID finds a JobExecution by its ID and attaches its
// StepExecutions in the order they were saved.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	je, ok := r.jobExecutions[id]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	clone := snapshotJobExecution(je)
	for _, seID := range r.stepOrder[id] {
		se := *r.stepExecutions[seID]
		se.JobExecution = clone
		clone.StepExecutions = append(clone.StepExecutions, &se)
	}
	return clone, nil
}

// FindJobExecutionsByJobInstance finds all JobExecutions of the specified JobInstance, oldest first.
// StepExecutions are not loaded by this method.
func (r *InMemoryJobRepository) FindJobExecutionsByJobInstance(ctx context.Context, jobInstance *model.JobInstance) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []*model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobInstanceID == jobInstance.ID {
			executions = append(executions, snapshotJobExecution(je))
		}
	}
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreateTime.Before(executions[j].CreateTime)
	})
	return executions, nil
}
