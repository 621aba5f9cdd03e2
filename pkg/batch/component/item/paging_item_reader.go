// Package item provides the generic reader adapter, processor pipeline and
// composite writer that chunk steps are assembled from.
package item

import (
	"context"
	"errors"
	"fmt"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// PagingItemReader exposes a PageSource one item at a time. It fetches the
// next page when the current one is used up and reports port.ErrNoMoreItems
// after the first empty page, without querying the source again.
type PagingItemReader[T any] struct {
	name      string
	source    port.PageSource[T]
	page      int
	buffer    []T
	cursor    int
	readCount int
	exhausted bool
	ec        model.ExecutionContext
}

// NewPagingItemReader creates a reader named name over source. The name
// prefixes the keys the reader writes to the ExecutionContext.
func NewPagingItemReader[T any](name string, source port.PageSource[T]) *PagingItemReader[T] {
	return &PagingItemReader[T]{
		name:   name,
		source: source,
		ec:     model.NewExecutionContext(),
	}
}

// Open resets the cursor to the first page.
func (r *PagingItemReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	if r.source == nil {
		return exception.NewConfigurationError("PagingItemReader", fmt.Sprintf("reader '%s' has no page source", r.name))
	}
	if r.source.PageSize() <= 0 {
		return exception.NewConfigurationError("PagingItemReader", fmt.Sprintf("reader '%s': page size must be positive, got %d", r.name, r.source.PageSize()))
	}
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	r.ec = ec
	r.page = 0
	r.buffer = nil
	r.cursor = 0
	r.readCount = 0
	r.exhausted = false
	r.updateContext()
	logger.Debugf("PagingItemReader '%s': opened (page size %d).", r.name, r.source.PageSize())
	return nil
}

// Read returns the next item, or port.ErrNoMoreItems at end of input.
func (r *PagingItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.exhausted {
		return zero, port.ErrNoMoreItems
	}
	if r.cursor >= len(r.buffer) {
		items, err := r.source.FetchPage(ctx, r.page)
		if err != nil {
			var be *exception.BatchError
			if errors.As(err, &be) {
				return zero, err
			}
			return zero, exception.NewDataAccessError("PagingItemReader", fmt.Sprintf("reader '%s': failed to fetch page %d", r.name, r.page), err)
		}
		if len(items) == 0 {
			logger.Debugf("PagingItemReader '%s': page %d is empty, input exhausted after %d items.", r.name, r.page, r.readCount)
			r.exhausted = true
			r.buffer = nil
			return zero, port.ErrNoMoreItems
		}
		r.buffer = items
		r.cursor = 0
		r.page++
	}
	item := r.buffer[r.cursor]
	r.cursor++
	r.readCount++
	r.updateContext()
	return item, nil
}

// Close drops the buffered page.
func (r *PagingItemReader[T]) Close(ctx context.Context) error {
	r.buffer = nil
	logger.Debugf("PagingItemReader '%s': closed after %d items.", r.name, r.readCount)
	return nil
}

// GetExecutionContext implements port.ExecutionContextAware.
func (r *PagingItemReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return r.ec.Copy(), nil
}

func (r *PagingItemReader[T]) updateContext() {
	r.ec.Put(r.name+".read.count", r.readCount)
	r.ec.Put(r.name+".page", r.page)
}

var _ port.ItemReader[any] = (*PagingItemReader[any])(nil)
