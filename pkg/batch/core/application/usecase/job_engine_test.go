package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	usecase "github.com/tigerroll/chunkbatch/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/repository"
	runner "github.com/tigerroll/chunkbatch/pkg/batch/core/job/runner"
	incrementer "github.com/tigerroll/chunkbatch/pkg/batch/core/support/incrementer"
	tasklet "github.com/tigerroll/chunkbatch/pkg/batch/engine/step/tasklet"
	inmemory "github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/inmemory"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

func newTaskletJob(t *testing.T, repo repository.JobRepository, jobName string, fns ...port.TaskletFunc) port.Job {
	t.Helper()
	steps := make([]port.Step, 0, len(fns))
	for i, fn := range fns {
		step, err := tasklet.NewTaskletStep(jobName+"Step"+string(rune('A'+i)), fn, repo)
		require.NoError(t, err)
		steps = append(steps, step)
	}
	job, err := runner.NewSimpleJob(jobName, repo, steps...)
	require.NoError(t, err)
	return job
}

func finished(context.Context, *model.StepExecution) (model.RepeatStatus, error) {
	return model.RepeatStatusFinished, nil
}

func newEngine(t *testing.T) (*usecase.JobEngine, repository.JobRepository) {
	t.Helper()
	repo := inmemory.NewInMemoryJobRepository()
	inc, err := incrementer.NewRunIDIncrementerFromRepository(context.Background(), repo)
	require.NoError(t, err)
	return usecase.NewJobEngine(repo, inc), repo
}

func TestJobEngine_RunAssignsIncreasingRunIDs(t *testing.T) {
	engine, repo := newEngine(t)
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "greetingJob", finished, finished)))

	first, err := engine.Run(context.Background(), "greetingJob", model.NewJobParameters())
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), "greetingJob", model.NewJobParameters())
	require.NoError(t, err)

	assert.Equal(t, model.BatchStatusCompleted, first.Status)
	assert.Equal(t, model.ExitStatusCompleted, first.ExitStatus)
	assert.Equal(t, []string{"greetingJobStepA", "greetingJobStepB"}, first.StepNames())
	assert.Greater(t, second.RunID, first.RunID)

	count, err := engine.Explorer().GetJobInstanceCount(context.Background(), "greetingJob")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	maxRunID, err := repo.GetMaxRunID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.RunID, maxRunID)
}

func TestJobEngine_SeedsRunIDFromRepository(t *testing.T) {
	engine, repo := newEngine(t)
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "greetingJob", finished)))
	first, err := engine.Run(context.Background(), "greetingJob", model.NewJobParameters())
	require.NoError(t, err)

	// A second engine over the same store must not reuse run ids.
	inc, err := incrementer.NewRunIDIncrementerFromRepository(context.Background(), repo)
	require.NoError(t, err)
	restarted := usecase.NewJobEngine(repo, inc)
	require.NoError(t, restarted.Register(newTaskletJob(t, repo, "greetingJob", finished)))

	next, err := restarted.Run(context.Background(), "greetingJob", model.NewJobParameters())
	require.NoError(t, err)
	assert.Greater(t, next.RunID, first.RunID)
}

func TestJobEngine_FailedJobIsAResultNotAnError(t *testing.T) {
	engine, repo := newEngine(t)
	boom := exception.NewBusinessRuleError("exceptionStep", "Error This value is Odd: 7")
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "exceptionJob",
		func(context.Context, *model.StepExecution) (model.RepeatStatus, error) {
			return model.RepeatStatusFinished, boom
		})))

	res, err := engine.Run(context.Background(), "exceptionJob", model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, res.Status)

	step, ok := res.Step("exceptionJobStepA")
	require.True(t, ok)
	assert.Equal(t, model.BatchStatusFailed, step.Status)
	assert.True(t, exception.IsKind(step.Err, exception.KindBusinessRule))
}

func TestJobEngine_UnknownJob(t *testing.T) {
	engine, _ := newEngine(t)

	_, err := engine.Run(context.Background(), "missingJob", model.NewJobParameters())
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestJobEngine_DuplicateRegistration(t *testing.T) {
	engine, repo := newEngine(t)
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "greetingJob", finished)))

	err := engine.Register(newTaskletJob(t, repo, "greetingJob", finished))
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
	assert.Equal(t, []string{"greetingJob"}, engine.JobNames())
}

func TestJobEngine_WithoutIncrementerRejectsCompletedInstance(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	engine := usecase.NewJobEngine(repo, nil)
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "greetingJob", finished)))

	params := model.JobParametersOf(map[string]interface{}{"date": "2026-10-18"})
	res, err := engine.Run(context.Background(), "greetingJob", params)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, res.Status)

	_, err = engine.Run(context.Background(), "greetingJob", params)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindBusinessRule))
}

func TestJobEngine_StopRunningExecution(t *testing.T) {
	engine, repo := newEngine(t)
	looper := func(ctx context.Context, _ *model.StepExecution) (model.RepeatStatus, error) {
		select {
		case <-ctx.Done():
		case <-time.After(5 * time.Millisecond):
		}
		return model.RepeatStatusContinuable, nil
	}
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "looperJob", looper)))

	done := make(chan *model.JobExecutionResult, 1)
	go func() {
		res, err := engine.Run(context.Background(), "looperJob", model.NewJobParameters())
		if err != nil {
			done <- nil
			return
		}
		done <- res
	}()

	require.Eventually(t, func() bool {
		return len(engine.Operator().RunningExecutions()) == 1
	}, time.Second, 5*time.Millisecond)
	executionID := engine.Operator().RunningExecutions()[0]
	require.NoError(t, engine.Operator().Stop(context.Background(), executionID))

	select {
	case res := <-done:
		require.NotNil(t, res)
		assert.Equal(t, model.BatchStatusStopped, res.Status)
		assert.Equal(t, executionID, res.ExecutionID)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
	assert.Empty(t, engine.Operator().RunningExecutions())

	err := engine.Operator().Stop(context.Background(), executionID)
	assert.Error(t, err)
}

func TestJobExplorer_QueriesLaunchedExecutions(t *testing.T) {
	engine, repo := newEngine(t)
	require.NoError(t, engine.Register(newTaskletJob(t, repo, "counterJob", finished)))

	res, err := engine.Run(context.Background(), "counterJob", model.NewJobParameters())
	require.NoError(t, err)

	explorer := engine.Explorer()
	je, err := explorer.GetJobExecution(context.Background(), res.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 1)

	last, err := explorer.GetLastJobExecution(context.Background(), je.JobInstanceID)
	require.NoError(t, err)
	assert.Equal(t, je.ID, last.ID)

	params, err := explorer.GetParameters(context.Background(), je.ID)
	require.NoError(t, err)
	runID, ok := params.GetInt(model.RunIDKey)
	require.True(t, ok)
	assert.Equal(t, res.RunID, int64(runID))

	names, err := explorer.GetJobNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"counterJob"}, names)

	_, err = explorer.GetJobExecution(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrJobExecutionNotFound))
}
