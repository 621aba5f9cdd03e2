package tasklet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/engine/step/tasklet"
	"github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkbatch/pkg/batch/test"
)

func newStep(t *testing.T, name string, tl port.Tasklet) (*tasklet.TaskletStep, *inmemory.InMemoryJobRepository) {
	t.Helper()
	repo := inmemory.NewInMemoryJobRepository()
	step, err := tasklet.NewTaskletStep(name, tl, repo)
	require.NoError(t, err)
	return step, repo
}

func execute(t *testing.T, ctx context.Context, step *tasklet.TaskletStep, repo *inmemory.InMemoryJobRepository) (*model.StepExecution, error) {
	t.Helper()
	je := testutil.NewTestJobExecution("taskletJob", nil)
	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	se := testutil.NewTestStepExecution(je, step.StepName())
	require.NoError(t, repo.SaveStepExecution(context.Background(), se))
	return se, step.Execute(ctx, je, se)
}

func TestTaskletStep_FinishedCompletes(t *testing.T) {
	calls := 0
	step, repo := newStep(t, "greetingStep", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.RepeatStatus, error) {
		calls++
		return model.RepeatStatusFinished, nil
	}))

	se, err := execute(t, context.Background(), step, repo)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
}

func TestTaskletStep_ContinuableReinvokesWithinStep(t *testing.T) {
	count := 0
	step, repo := newStep(t, "counterStep", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.RepeatStatus, error) {
		count++
		return model.ContinueIf(count < 10), nil
	}))

	se, err := execute(t, context.Background(), step, repo)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	iterations, ok := se.ExecutionContext.GetInt("counterStep.iterations")
	assert.True(t, ok)
	assert.Equal(t, 10, iterations)
}

func TestTaskletStep_ErrorFailsImmediately(t *testing.T) {
	count := 0
	step, repo := newStep(t, "exceptionStep", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.RepeatStatus, error) {
		count++
		if count == 7 {
			return model.RepeatStatusFinished, exception.NewBusinessRuleError("ExceptionTasklet", "count reached 7")
		}
		return model.RepeatStatusContinuable, nil
	}))

	se, err := execute(t, context.Background(), step, repo)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindBusinessRule))
	assert.Equal(t, 7, count)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Equal(t, model.ExitStatusFailed, se.ExitStatus)
	require.Len(t, se.Failures, 1)
}

func TestTaskletStep_CustomExitStatusIsKept(t *testing.T) {
	step, repo := newStep(t, "decisionStep", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.RepeatStatus, error) {
		se.SetExitStatus("EVEN")
		return model.RepeatStatusFinished, nil
	}))

	se, err := execute(t, context.Background(), step, repo)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatus("EVEN"), se.ExitStatus)
}

func TestTaskletStep_MaxIterationsStops(t *testing.T) {
	count := 0
	step, repo := newStep(t, "looperStep", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.RepeatStatus, error) {
		count++
		return model.RepeatStatusContinuable, nil
	}))
	step.WithMaxIterations(5)

	se, err := execute(t, context.Background(), step, repo)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, model.BatchStatusStopped, se.Status)
}

func TestTaskletStep_CancellationStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	count := 0
	step, repo := newStep(t, "looperStep", port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.RepeatStatus, error) {
		count++
		if count == 3 {
			cancel()
		}
		return model.RepeatStatusContinuable, nil
	}))

	se, err := execute(t, ctx, step, repo)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, model.BatchStatusStopped, se.Status)
	assert.Equal(t, model.ExitStatusStopped, se.ExitStatus)
}

func TestNewTaskletStep_Validation(t *testing.T) {
	_, err := tasklet.NewTaskletStep("", port.TaskletFunc(nil), inmemory.NewInMemoryJobRepository())
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
	_, err = tasklet.NewTaskletStep("s", nil, inmemory.NewInMemoryJobRepository())
	assert.Error(t, err)
}
