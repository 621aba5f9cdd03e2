package inmemory

import (
	"context"
	"fmt"

	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
)

func snapshotStepExecution(se *model.StepExecution) *model.StepExecution {
	clone := *se
	clone.JobExecution = nil
	clone.Failures = append([]error(nil), se.Failures...)
	clone.ExecutionContext = se.ExecutionContext.Copy()
	return &clone
}

// SaveStepExecution persists a new StepExecution.
// It returns an error if a StepExecution with the same ID already exists.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; exists {
		return fmt.Errorf("StepExecution with ID %s already exists", stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = snapshotStepExecution(stepExecution)
	r.stepOrder[stepExecution.JobExecutionID] = append(r.stepOrder[stepExecution.JobExecutionID], stepExecution.ID)
	return nil
}

// UpdateStepExecution updates an existing StepExecution.
// It returns an error if the StepExecution with the given ID is not found.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stepExecutions[stepExecution.ID]; !exists {
		return fmt.Errorf("%w: %s", repository.ErrStepExecutionNotFound, stepExecution.ID)
	}
	r.stepExecutions[stepExecution.ID] = snapshotStepExecution(stepExecution)
	return nil
}

// FindStepExecutionByID finds a StepExecution by its ID.
func (r *InMemoryJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	se, ok := r.stepExecutions[id]
	if !ok {
		return nil, repository.ErrStepExecutionNotFound
	}
	clone := *se
	return &clone, nil
}
