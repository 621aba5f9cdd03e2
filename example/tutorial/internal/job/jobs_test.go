package job_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/job"
	"github.com/tigerroll/chunkbatch/example/tutorial/internal/resources"
	usecase "github.com/tigerroll/chunkbatch/pkg/batch/core/application/usecase"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	incrementer "github.com/tigerroll/chunkbatch/pkg/batch/core/support/incrementer"
	inmemory "github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

type fixture struct {
	engine *usecase.JobEngine
	repo   *inmemory.InMemoryJobRepository
	outDir string
	out    *bytes.Buffer
}

// newFixture builds the jobs that need no database. draw feeds the odd/even tasklets.
func newFixture(t *testing.T, draw int) *fixture {
	t.Helper()
	repo := inmemory.NewInMemoryJobRepository()
	inc, err := incrementer.NewRunIDIncrementerFromRepository(context.Background(), repo)
	require.NoError(t, err)

	f := &fixture{engine: usecase.NewJobEngine(repo, inc), repo: repo, outDir: t.TempDir(), out: &bytes.Buffer{}}
	deps := &job.Deps{
		Repository: repo,
		Data:       resources.FS(),
		OutputDir:  f.outDir,
		Out:        f.out,
		Draw:       func() int { return draw },
	}
	jobs, err := deps.BuildAll()
	require.NoError(t, err)
	require.NoError(t, f.engine.Register(jobs...))
	return f
}

func (f *fixture) run(t *testing.T, name string) *model.JobExecutionResult {
	t.Helper()
	res, err := f.engine.Run(context.Background(), name, model.NewJobParameters())
	require.NoError(t, err)
	return res
}

func TestBuildAll_SkipsJobsWithoutDatabase(t *testing.T) {
	f := newFixture(t, 2)
	assert.ElementsMatch(t, []string{
		job.GreetingJobName, job.CounterJobName, job.ExceptionJobName, job.LooperJobName,
		job.PlayerJobName, job.CustomerFileJobName,
		job.NextStepJobName, job.OnStepJobName, job.StopStepJobName,
	}, f.engine.JobNames())
}

func TestBuildAll_RequiresRepository(t *testing.T) {
	_, err := (&job.Deps{}).BuildAll()
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestTaskletJobs(t *testing.T) {
	f := newFixture(t, 2)

	assert.Equal(t, model.BatchStatusCompleted, f.run(t, job.GreetingJobName).Status)
	assert.Equal(t, model.BatchStatusCompleted, f.run(t, job.CounterJobName).Status)

	res := f.run(t, job.ExceptionJobName)
	assert.Equal(t, model.BatchStatusFailed, res.Status)
	step, ok := res.Step("exceptionStep")
	require.True(t, ok)
	assert.True(t, exception.IsKind(step.Err, exception.KindBusinessRule))
	assert.Contains(t, step.Err.Error(), "count is 7")

	assert.Equal(t, model.BatchStatusStopped, f.run(t, job.LooperJobName).Status)
}

func TestPlayerJob_WritesAgedPlayersAndTotals(t *testing.T) {
	f := newFixture(t, 2)
	res := f.run(t, job.PlayerJobName)
	require.Equal(t, model.BatchStatusCompleted, res.Status)

	step, _ := res.Step("playerStep")
	assert.Equal(t, 13, step.ReadCount)
	assert.Equal(t, 13, step.WriteCount)
	assert.Equal(t, 2, step.CommitCount)

	b, err := os.ReadFile(filepath.Join(f.outDir, job.PlayersOutputFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, "No,Name,Age", lines[0])
	assert.Equal(t, "1,Son Heungmin,32", lines[1])
	assert.Equal(t, "Total players: 13", lines[14])
	assert.Equal(t, "Total ages: 362", lines[15])
}

func TestCustomerFileJob_WritesNameAndAge(t *testing.T) {
	f := newFixture(t, 2)
	res := f.run(t, job.CustomerFileJobName)
	require.Equal(t, model.BatchStatusCompleted, res.Status)

	step, _ := res.Step("customerFileStep")
	assert.Equal(t, 1, step.CommitCount)

	b, err := os.ReadFile(filepath.Join(f.outDir, job.CustomersOutputFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "ID,AGE", lines[0])
	assert.Equal(t, "Alice,34", lines[1])
	assert.Equal(t, "Total customers: 8", lines[9])
	assert.Equal(t, "Total ages: 304", lines[10])
}

func TestNextStepJob_PromotesIntoJobContext(t *testing.T) {
	f := newFixture(t, 2)
	res := f.run(t, job.NextStepJobName)
	require.Equal(t, model.BatchStatusCompleted, res.Status)
	assert.Equal(t, []string{"step01", "step02"}, res.StepNames())

	je, err := f.repo.FindJobExecutionByID(context.Background(), res.ExecutionID)
	require.NoError(t, err)
	greeting, ok := je.ExecutionContext.GetString("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello from step01", greeting)
}

func TestOnStepJob_RoutesOnExitStatus(t *testing.T) {
	even := newFixture(t, 4).run(t, job.OnStepJobName)
	assert.Equal(t, model.BatchStatusCompleted, even.Status)
	assert.Equal(t, []string{"stepOn01", "stepOn02"}, even.StepNames())

	odd := newFixture(t, 7).run(t, job.OnStepJobName)
	assert.Equal(t, model.BatchStatusCompleted, odd.Status)
	assert.Equal(t, []string{"stepOn01", "stepOn03"}, odd.StepNames())
	first, _ := odd.Step("stepOn01")
	assert.Equal(t, model.ExitStatusFailed, first.ExitStatus)
	assert.Contains(t, first.Err.Error(), "Error This value is Odd: 7")
}

func TestStopStepJob_StopsOnFailure(t *testing.T) {
	even := newFixture(t, 10).run(t, job.StopStepJobName)
	assert.Equal(t, model.BatchStatusCompleted, even.Status)
	assert.Equal(t, []string{"stepStop01", "stepStop02"}, even.StepNames())

	odd := newFixture(t, 11).run(t, job.StopStepJobName)
	assert.Equal(t, model.BatchStatusStopped, odd.Status)
	assert.Equal(t, []string{"stepStop01"}, odd.StepNames())
}
