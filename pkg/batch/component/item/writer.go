package item

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
)

// CompositeItemWriter hands each chunk to every delegate in order. The first
// delegate failure aborts the chunk for the remaining delegates.
type CompositeItemWriter[T any] struct {
	delegates []port.ItemWriter[T]
	opened    int
}

// NewCompositeItemWriter fans chunks out to delegates.
func NewCompositeItemWriter[T any](delegates ...port.ItemWriter[T]) *CompositeItemWriter[T] {
	return &CompositeItemWriter[T]{delegates: delegates}
}

// Open opens the delegates in order. If one fails, those already opened are closed.
func (w *CompositeItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.opened = 0
	for i, d := range w.delegates {
		if err := d.Open(ctx, ec); err != nil {
			result := multierror.Append(nil, fmt.Errorf("composite writer: delegate %d failed to open: %w", i, err))
			if cerr := w.Close(ctx); cerr != nil {
				result = multierror.Append(result, cerr)
			}
			return result.ErrorOrNil()
		}
		w.opened++
	}
	return nil
}

// Write writes items to each delegate and stops at the first error.
func (w *CompositeItemWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	for i, d := range w.delegates {
		if err := d.Write(ctx, t, items); err != nil {
			return fmt.Errorf("composite writer: delegate %d failed: %w", i, err)
		}
	}
	return nil
}

// Close closes the opened delegates and combines their errors.
func (w *CompositeItemWriter[T]) Close(ctx context.Context) error {
	var result *multierror.Error
	for i := 0; i < w.opened; i++ {
		if err := w.delegates[i].Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("composite writer: delegate %d failed to close: %w", i, err))
		}
	}
	w.opened = 0
	return result.ErrorOrNil()
}

// GetExecutionContext merges the state exposed by the delegates. Later
// delegates win on key collisions.
func (w *CompositeItemWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	merged := model.NewExecutionContext()
	for i, d := range w.delegates {
		aware, ok := d.(port.ExecutionContextAware)
		if !ok {
			continue
		}
		ec, err := aware.GetExecutionContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("composite writer: delegate %d: %w", i, err)
		}
		for k, v := range ec {
			merged.Put(k, v)
		}
	}
	return merged, nil
}

var (
	_ port.ItemWriter[any]       = (*CompositeItemWriter[any])(nil)
	_ port.ExecutionContextAware = (*CompositeItemWriter[any])(nil)
)
