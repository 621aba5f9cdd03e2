package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
)

// RunJobRepositoryContract exercises the behaviour every JobRepository
// implementation must share. newRepo must return an empty repository.
func RunJobRepositoryContract(t *testing.T, newRepo func(t *testing.T) repository.JobRepository) {
	t.Run("JobInstanceLookup", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ji := model.NewJobInstance("customerGradeJob", NewTestJobParameters(map[string]interface{}{"run.id": 3, "age": 20}))
		require.NoError(t, repo.SaveJobInstance(ctx, ji))
		require.NoError(t, repo.SaveJobInstance(ctx, model.NewJobInstance("greetingJob", NewTestJobParameters(map[string]interface{}{"run.id": 7}))))

		found, err := repo.FindJobInstanceByID(ctx, ji.ID)
		require.NoError(t, err)
		assert.Equal(t, "customerGradeJob", found.JobName)
		assert.Equal(t, int64(3), found.RunID)

		byParams, err := repo.FindJobInstanceByJobNameAndParameters(ctx, "customerGradeJob",
			NewTestJobParameters(map[string]interface{}{"age": 20, "run.id": 3}))
		require.NoError(t, err)
		assert.Equal(t, ji.ID, byParams.ID)

		_, err = repo.FindJobInstanceByJobNameAndParameters(ctx, "customerGradeJob",
			NewTestJobParameters(map[string]interface{}{"age": 21, "run.id": 3}))
		assert.True(t, errors.Is(err, repository.ErrJobInstanceNotFound))

		_, err = repo.FindJobInstanceByID(ctx, "missing")
		assert.True(t, errors.Is(err, repository.ErrJobInstanceNotFound))

		count, err := repo.GetJobInstanceCount(ctx, "customerGradeJob")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		names, err := repo.GetJobNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"customerGradeJob", "greetingJob"}, names)

		maxRunID, err := repo.GetMaxRunID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), maxRunID)
	})

	t.Run("EmptyRepositoryMaxRunID", func(t *testing.T) {
		repo := newRepo(t)
		maxRunID, err := repo.GetMaxRunID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(0), maxRunID)
	})

	t.Run("JobExecutionWithSteps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		je := NewTestJobExecution("onStepJob", map[string]interface{}{"run.id": 1})
		ji := &model.JobInstance{ID: je.JobInstanceID, JobName: je.JobName, Parameters: je.Parameters, RunID: je.RunID, CreateTime: je.CreateTime}
		require.NoError(t, repo.SaveJobInstance(ctx, ji))
		require.NoError(t, repo.SaveJobExecution(ctx, je))

		first := NewTestStepExecution(je, "stepOn01")
		require.NoError(t, repo.SaveStepExecution(ctx, first))
		first.MarkAsStarted()
		first.ReadCount = 4
		first.MarkAsFailed(errors.New("boom"))
		require.NoError(t, repo.UpdateStepExecution(ctx, first))

		second := NewTestStepExecution(je, "stepOn03")
		require.NoError(t, repo.SaveStepExecution(ctx, second))
		second.MarkAsStarted()
		second.ExecutionContext.Put("processed", 2)
		second.MarkAsCompleted()
		require.NoError(t, repo.UpdateStepExecution(ctx, second))

		je.MarkAsStarted()
		je.CurrentStepName = "stepOn03"
		je.MarkAsCompleted()
		require.NoError(t, repo.UpdateJobExecution(ctx, je))

		loaded, err := repo.FindJobExecutionByID(ctx, je.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BatchStatusCompleted, loaded.Status)
		assert.Equal(t, "stepOn03", loaded.CurrentStepName)
		require.NotNil(t, loaded.EndTime)
		assert.WithinDuration(t, *je.EndTime, *loaded.EndTime, time.Second)
		require.Len(t, loaded.StepExecutions, 2)
		assert.Equal(t, "stepOn01", loaded.StepExecutions[0].StepName)
		assert.Equal(t, "stepOn03", loaded.StepExecutions[1].StepName)
		assert.Equal(t, model.BatchStatusFailed, loaded.StepExecutions[0].Status)
		assert.Equal(t, 4, loaded.StepExecutions[0].ReadCount)
		require.Len(t, loaded.StepExecutions[0].Failures, 1)
		assert.Equal(t, "boom", loaded.StepExecutions[0].Failures[0].Error())
		processed, ok := loaded.StepExecutions[1].ExecutionContext.GetInt("processed")
		assert.True(t, ok)
		assert.Equal(t, 2, processed)

		step, err := repo.FindStepExecutionByID(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BatchStatusCompleted, step.Status)

		executions, err := repo.FindJobExecutionsByJobInstance(ctx, ji)
		require.NoError(t, err)
		require.Len(t, executions, 1)
		assert.Equal(t, je.ID, executions[0].ID)
	})

	t.Run("UpdatesOfUnknownExecutions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		je := NewTestJobExecution("greetingJob", nil)

		err := repo.UpdateJobExecution(ctx, je)
		assert.True(t, errors.Is(err, repository.ErrJobExecutionNotFound))
		err = repo.UpdateStepExecution(ctx, NewTestStepExecution(je, "greetingStep"))
		assert.True(t, errors.Is(err, repository.ErrStepExecutionNotFound))
		_, err = repo.FindJobExecutionByID(ctx, je.ID)
		assert.True(t, errors.Is(err, repository.ErrJobExecutionNotFound))
		_, err = repo.FindStepExecutionByID(ctx, "missing")
		assert.True(t, errors.Is(err, repository.ErrStepExecutionNotFound))
	})
}
