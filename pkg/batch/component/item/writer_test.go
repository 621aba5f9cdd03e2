package item_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/component/item"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
)

type recordingWriter struct {
	name     string
	log      *[]string
	writeErr error
	openErr  error
	closeErr error
	chunks   [][]int
}

func (w *recordingWriter) Open(ctx context.Context, ec model.ExecutionContext) error {
	*w.log = append(*w.log, "open:"+w.name)
	return w.openErr
}

func (w *recordingWriter) Write(ctx context.Context, t tx.Tx, items []int) error {
	*w.log = append(*w.log, "write:"+w.name)
	if w.writeErr != nil {
		return w.writeErr
	}
	w.chunks = append(w.chunks, items)
	return nil
}

func (w *recordingWriter) Close(ctx context.Context) error {
	*w.log = append(*w.log, "close:"+w.name)
	return w.closeErr
}

func TestCompositeItemWriter_WritesInOrder(t *testing.T) {
	var log []string
	a := &recordingWriter{name: "a", log: &log}
	b := &recordingWriter{name: "b", log: &log}
	w := item.NewCompositeItemWriter[int](a, b)

	ctx := context.Background()
	require.NoError(t, w.Open(ctx, model.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, nil, []int{1, 2}))
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, []string{"open:a", "open:b", "write:a", "write:b", "close:a", "close:b"}, log)
	assert.Equal(t, [][]int{{1, 2}}, b.chunks)
}

func TestCompositeItemWriter_FirstFailureAbortsRemaining(t *testing.T) {
	var log []string
	boom := errors.New("disk full")
	a := &recordingWriter{name: "a", log: &log, writeErr: boom}
	b := &recordingWriter{name: "b", log: &log}
	w := item.NewCompositeItemWriter[int](a, b)

	ctx := context.Background()
	require.NoError(t, w.Open(ctx, nil))
	err := w.Write(ctx, nil, []int{1})
	assert.ErrorIs(t, err, boom)
	assert.NotContains(t, log, "write:b")
	assert.Empty(t, b.chunks)
}

func TestCompositeItemWriter_OpenFailureClosesOpened(t *testing.T) {
	var log []string
	a := &recordingWriter{name: "a", log: &log}
	b := &recordingWriter{name: "b", log: &log, openErr: errors.New("no such bucket")}
	w := item.NewCompositeItemWriter[int](a, b)

	err := w.Open(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such bucket")
	assert.Equal(t, []string{"open:a", "open:b", "close:a"}, log)
}

func TestCompositeItemWriter_CloseCombinesErrors(t *testing.T) {
	var log []string
	a := &recordingWriter{name: "a", log: &log, closeErr: errors.New("a failed")}
	b := &recordingWriter{name: "b", log: &log, closeErr: errors.New("b failed")}
	w := item.NewCompositeItemWriter[int](a, b)

	require.NoError(t, w.Open(context.Background(), nil))
	err := w.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
}

type stateWriter struct {
	recordingWriter
	state model.ExecutionContext
}

func (w *stateWriter) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return w.state, nil
}

func TestCompositeItemWriter_MergesDelegateState(t *testing.T) {
	var log []string
	a := &stateWriter{recordingWriter: recordingWriter{name: "a", log: &log}, state: model.ExecutionContext{"objects": 2, "shared": "a"}}
	b := &recordingWriter{name: "b", log: &log}
	c := &stateWriter{recordingWriter: recordingWriter{name: "c", log: &log}, state: model.ExecutionContext{"shared": "c"}}
	w := item.NewCompositeItemWriter[int](a, b, c)

	ec, err := w.GetExecutionContext(context.Background())
	require.NoError(t, err)
	objects, _ := ec.GetInt("objects")
	shared, _ := ec.GetString("shared")
	assert.Equal(t, 2, objects)
	assert.Equal(t, "c", shared)
}
