package test

import (
	"context"
	"sync"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
)

// ListItemReader reads a fixed list of items. OpenErr and ReadErrAt let a test
// inject failures.
type ListItemReader[T any] struct {
	Items     []T
	OpenErr   error
	ReadErr   error
	ReadErrAt int // index at which ReadErr is returned, -1 for never
	CloseErr  error

	pos    int
	Opened bool
	Closed bool
}

// NewListItemReader creates a reader over items.
func NewListItemReader[T any](items ...T) *ListItemReader[T] {
	return &ListItemReader[T]{Items: items, ReadErrAt: -1}
}

// Open implements port.ItemStream.
func (r *ListItemReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	if r.OpenErr != nil {
		return r.OpenErr
	}
	r.Opened = true
	r.pos = 0
	return nil
}

// Read implements port.ItemReader.
func (r *ListItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.pos == r.ReadErrAt {
		return zero, r.ReadErr
	}
	if r.pos >= len(r.Items) {
		return zero, port.ErrNoMoreItems
	}
	item := r.Items[r.pos]
	r.pos++
	return item, nil
}

// Close implements port.ItemStream.
func (r *ListItemReader[T]) Close(ctx context.Context) error {
	r.Closed = true
	return r.CloseErr
}

// RecordingItemWriter keeps every chunk it receives. FailOnChunk makes the
// n-th Write call (1-based) return Err.
type RecordingItemWriter[T any] struct {
	mu          sync.Mutex
	Chunks      [][]T
	FailOnChunk int
	Err         error
	calls       int
	Opened      bool
	Closed      bool
}

// Open implements port.ItemStream.
func (w *RecordingItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.Opened = true
	return nil
}

// Write implements port.ItemWriter.
func (w *RecordingItemWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.FailOnChunk > 0 && w.calls == w.FailOnChunk {
		return w.Err
	}
	chunk := make([]T, len(items))
	copy(chunk, items)
	w.Chunks = append(w.Chunks, chunk)
	return nil
}

// Close implements port.ItemStream.
func (w *RecordingItemWriter[T]) Close(ctx context.Context) error {
	w.Closed = true
	return nil
}

// Items returns all written items in write order.
func (w *RecordingItemWriter[T]) Items() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	var all []T
	for _, c := range w.Chunks {
		all = append(all, c...)
	}
	return all
}

// Calls returns the number of Write invocations, failed ones included.
func (w *RecordingItemWriter[T]) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

var (
	_ port.ItemReader[int] = (*ListItemReader[int])(nil)
	_ port.ItemWriter[int] = (*RecordingItemWriter[int])(nil)
)
