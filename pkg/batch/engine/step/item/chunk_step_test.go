package item_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	itemsupport "github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/engine/step/item"
	"github.com/tigerroll/chunkbatch/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/chunkbatch/pkg/batch/test"
)

type player struct {
	No  int
	Age int
}

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func identity() port.ItemProcessor[int, int] {
	return itemsupport.NewPassThroughItemProcessor[int]()
}

// newExecutions saves a job execution and a READY step execution.
func newExecutions(t *testing.T, repo *inmemory.InMemoryJobRepository, stepName string) (*model.JobExecution, *model.StepExecution) {
	t.Helper()
	ctx := context.Background()
	je := testutil.NewTestJobExecution("testJob", map[string]interface{}{"run.id": 1})
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	se := testutil.NewTestStepExecution(je, stepName)
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	return je, se
}

type recordingChunkListener struct {
	before, after, errs int
	onAfter             func()
}

func (l *recordingChunkListener) BeforeChunk(context.Context, *model.StepExecution) { l.before++ }
func (l *recordingChunkListener) AfterChunk(context.Context, *model.StepExecution) {
	l.after++
	if l.onAfter != nil {
		l.onAfter()
	}
}
func (l *recordingChunkListener) AfterChunkError(context.Context, *model.StepExecution, error) {
	l.errs++
}

func TestChunkStep_WritesCeilOfItemsOverChunkSize(t *testing.T) {
	cases := []struct {
		items, chunk int
		want         []int
	}{
		{items: 25, chunk: 10, want: []int{10, 10, 5}},
		{items: 20, chunk: 10, want: []int{10, 10}},
		{items: 3, chunk: 1, want: []int{1, 1, 1}},
		{items: 0, chunk: 10, want: nil},
	}
	for _, tc := range cases {
		repo := inmemory.NewInMemoryJobRepository()
		txm := tx.NewNoOpTransactionManager()
		writer := &testutil.RecordingItemWriter[int]{}
		step, err := item.NewChunkStep[int, int]("numberStep", testutil.NewListItemReader(numbers(tc.items)...), identity(), writer, tc.chunk, repo, txm)
		require.NoError(t, err)
		je, se := newExecutions(t, repo, step.StepName())

		require.NoError(t, step.Execute(context.Background(), je, se))

		var sizes []int
		for _, c := range writer.Chunks {
			sizes = append(sizes, len(c))
		}
		assert.Equal(t, tc.want, sizes)
		if tc.items > 0 {
			assert.Equal(t, numbers(tc.items), writer.Items())
		}
		assert.Equal(t, model.BatchStatusCompleted, se.Status)
		assert.Equal(t, model.ExitStatusCompleted, se.ExitStatus)
		assert.Equal(t, tc.items, se.ReadCount)
		assert.Equal(t, tc.items, se.WriteCount)
		assert.Equal(t, len(tc.want), se.CommitCount)

		begun, committed, rolledBack := txm.Counts()
		assert.Equal(t, int64(len(tc.want)), begun)
		assert.Equal(t, int64(len(tc.want)), committed)
		assert.Zero(t, rolledBack)
	}
}

func TestChunkStep_FilteredItemsNeverReachWriter(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	oddOnly := itemsupport.ProcessorFunc[int, *int](func(ctx context.Context, n int) (*int, error) {
		if n%2 == 0 {
			return nil, nil
		}
		return &n, nil
	})
	writer := &testutil.RecordingItemWriter[*int]{}
	step, err := item.NewChunkStep[int, *int]("oddStep", testutil.NewListItemReader(numbers(6)...), oddOnly, writer, 4, repo, nil)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	require.NoError(t, step.Execute(context.Background(), je, se))

	var written []int
	for _, p := range writer.Items() {
		written = append(written, *p)
	}
	assert.Equal(t, []int{1, 3, 5}, written)
	assert.Equal(t, 6, se.ReadCount)
	assert.Equal(t, 3, se.FilterCount)
	assert.Equal(t, 3, se.WriteCount)
	assert.Equal(t, 2, writer.Calls())
}

func TestChunkStep_AllFilteredChunkCommitsWithoutWrite(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	dropAll := itemsupport.ProcessorFunc[int, *int](func(ctx context.Context, n int) (*int, error) { return nil, nil })
	writer := &testutil.RecordingItemWriter[*int]{}
	step, err := item.NewChunkStep[int, *int]("dropStep", testutil.NewListItemReader(1, 2, 3), dropAll, writer, 10, repo, nil)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	require.NoError(t, step.Execute(context.Background(), je, se))
	assert.Zero(t, writer.Calls())
	assert.Equal(t, 3, se.FilterCount)
	assert.Equal(t, 1, se.CommitCount)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
}

func TestChunkStep_WriterFailureRollsBackOnlyThatChunk(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	txm := tx.NewNoOpTransactionManager()
	writeErr := exception.NewDataAccessError("testWriter", "disk full", nil)
	writer := &testutil.RecordingItemWriter[int]{FailOnChunk: 2, Err: writeErr}
	listener := &recordingChunkListener{}
	step, err := item.NewChunkStep[int, int]("failingStep", testutil.NewListItemReader(numbers(25)...), identity(), writer, 10, repo, txm)
	require.NoError(t, err)
	step.AddChunkListener(listener)
	je, se := newExecutions(t, repo, step.StepName())

	err = step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.True(t, errors.Is(err, writeErr))
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))

	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Equal(t, model.ExitStatusFailed, se.ExitStatus)
	assert.Equal(t, numbers(10), writer.Items())
	assert.Equal(t, 2, writer.Calls())
	assert.Equal(t, 10, se.WriteCount)
	assert.Equal(t, 1, se.CommitCount)
	assert.Equal(t, 1, se.RollbackCount)
	assert.NotEmpty(t, se.Failures)

	begun, committed, rolledBack := txm.Counts()
	assert.Equal(t, int64(2), begun)
	assert.Equal(t, int64(1), committed)
	assert.Equal(t, int64(1), rolledBack)
	assert.Equal(t, 2, listener.before)
	assert.Equal(t, 1, listener.after)
	assert.Equal(t, 1, listener.errs)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, stored.Status)
}

func TestChunkStep_ProcessorErrorFailsStep(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	bad := itemsupport.ProcessorFunc[int, int](func(ctx context.Context, n int) (int, error) {
		if n == 3 {
			return 0, exception.NewValidationError("ageParser", "age is not a number", nil)
		}
		return n, nil
	})
	writer := &testutil.RecordingItemWriter[int]{}
	step, err := item.NewChunkStep[int, int]("parseStep", testutil.NewListItemReader(numbers(5)...), bad, writer, 10, repo, nil)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	err = step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindValidation))
	assert.Zero(t, writer.Calls())
	assert.Equal(t, 1, se.RollbackCount)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

func TestChunkStep_IncrementsAgesInOneWrite(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	addOne := itemsupport.ProcessorFunc[player, player](func(ctx context.Context, p player) (player, error) {
		p.Age++
		return p, nil
	})
	writer := &testutil.RecordingItemWriter[player]{}
	reader := testutil.NewListItemReader(player{No: 1, Age: 30}, player{No: 2, Age: 41})
	step, err := item.NewChunkStep[player, player]("playerStep", reader, addOne, writer, 10, repo, nil)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	require.NoError(t, step.Execute(context.Background(), je, se))
	require.Len(t, writer.Chunks, 1)
	assert.Equal(t, []player{{No: 1, Age: 31}, {No: 2, Age: 42}}, writer.Chunks[0])
}

func TestChunkStep_CancellationStopsAtChunkBoundary(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	writer := &testutil.RecordingItemWriter[int]{}
	listener := &recordingChunkListener{onAfter: cancel}
	step, err := item.NewChunkStep[int, int]("stoppableStep", testutil.NewListItemReader(numbers(30)...), identity(), writer, 10, repo, nil)
	require.NoError(t, err)
	step.AddChunkListener(listener)
	je, se := newExecutions(t, repo, step.StepName())

	require.NoError(t, step.Execute(ctx, je, se))
	assert.Equal(t, model.BatchStatusStopped, se.Status)
	assert.Equal(t, model.ExitStatusStopped, se.ExitStatus)
	assert.Equal(t, 1, writer.Calls())
	assert.Equal(t, 10, se.WriteCount)

	stored, err := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusStopped, stored.Status)
}

func TestChunkStep_CloseErrorsAreRecorded(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	reader := testutil.NewListItemReader(1, 2)
	reader.CloseErr = errors.New("file handle lost")
	writer := &testutil.RecordingItemWriter[int]{}
	step, err := item.NewChunkStep[int, int]("closeStep", reader, identity(), writer, 10, repo, nil)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	err = step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close ItemReader")
	assert.True(t, reader.Closed)
	assert.True(t, writer.Closed)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Equal(t, 2, se.WriteCount)
}

func TestChunkStep_OpenFailure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	reader := testutil.NewListItemReader[int]()
	reader.OpenErr = exception.NewConfigurationError("reader", "no such file")
	step, err := item.NewChunkStep[int, int]("openStep", reader, identity(), &testutil.RecordingItemWriter[int]{}, 10, repo, nil)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	err = step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
	assert.Equal(t, model.BatchStatusFailed, se.Status)
}

func TestChunkStep_BeginFailure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	txm := &testutil.MockTransactionManager{}
	txm.On("Begin", mock.Anything).Return(nil, errors.New("connection refused"))
	step, err := item.NewChunkStep[int, int]("beginStep", testutil.NewListItemReader(1), identity(), &testutil.RecordingItemWriter[int]{}, 10, repo, txm)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	err = step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindDataAccess))
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	txm.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestChunkStep_CommitFailure(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	mockTx := &testutil.MockTx{}
	txm := &testutil.MockTransactionManager{}
	txm.On("Begin", mock.Anything).Return(mockTx, nil)
	txm.On("Commit", mockTx).Return(errors.New("serialization failure"))
	writer := &testutil.RecordingItemWriter[int]{}
	step, err := item.NewChunkStep[int, int]("commitStep", testutil.NewListItemReader(1, 2), identity(), writer, 10, repo, txm)
	require.NoError(t, err)
	je, se := newExecutions(t, repo, step.StepName())

	err = step.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.Equal(t, model.BatchStatusFailed, se.Status)
	assert.Zero(t, se.WriteCount)
	assert.Zero(t, se.CommitCount)
	txm.AssertExpectations(t)
}

func TestNewChunkStep_Validation(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	reader := testutil.NewListItemReader[int]()
	writer := &testutil.RecordingItemWriter[int]{}

	_, err := item.NewChunkStep[int, int]("s", reader, identity(), writer, 0, repo, nil)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
	_, err = item.NewChunkStep[int, int]("", reader, identity(), writer, 1, repo, nil)
	assert.Error(t, err)
	_, err = item.NewChunkStep[int, int]("s", nil, identity(), writer, 1, repo, nil)
	assert.Error(t, err)
	_, err = item.NewChunkStep[int, int]("s", reader, identity(), writer, 1, nil, nil)
	assert.Error(t, err)
}
