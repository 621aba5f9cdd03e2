package item

import (
	"context"
	"reflect"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
)

// IsFiltered reports whether a processor result means "drop this item":
// a nil interface, pointer, map, slice, channel or function.
func IsFiltered(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// ProcessorFunc adapts a function to port.ItemProcessor.
type ProcessorFunc[I, O any] func(ctx context.Context, item I) (O, error)

// Process calls f.
func (f ProcessorFunc[I, O]) Process(ctx context.Context, item I) (O, error) {
	return f(ctx, item)
}

// FilterFunc keeps the items keep accepts and filters the rest.
func FilterFunc[T any](keep func(ctx context.Context, item *T) (bool, error)) port.ItemProcessor[*T, *T] {
	return ProcessorFunc[*T, *T](func(ctx context.Context, item *T) (*T, error) {
		ok, err := keep(ctx, item)
		if err != nil || !ok {
			return nil, err
		}
		return item, nil
	})
}

// PassThroughItemProcessor returns every item unchanged.
type PassThroughItemProcessor[T any] struct{}

// NewPassThroughItemProcessor creates a new instance of [PassThroughItemProcessor].
func NewPassThroughItemProcessor[T any]() port.ItemProcessor[T, T] {
	return PassThroughItemProcessor[T]{}
}

// Process returns the input item as is.
func (PassThroughItemProcessor[T]) Process(ctx context.Context, item T) (T, error) {
	return item, nil
}

// CompositeItemProcessor applies stages in order. When a stage filters the
// item the remaining stages are skipped and the filtered result is returned.
type CompositeItemProcessor[T any] struct {
	stages []port.ItemProcessor[T, T]
}

// NewCompositeItemProcessor chains stages.
func NewCompositeItemProcessor[T any](stages ...port.ItemProcessor[T, T]) *CompositeItemProcessor[T] {
	return &CompositeItemProcessor[T]{stages: stages}
}

// Process runs the pipeline. A stage error stops it and is returned unchanged.
func (c *CompositeItemProcessor[T]) Process(ctx context.Context, item T) (T, error) {
	current := item
	for _, stage := range c.stages {
		out, err := stage.Process(ctx, current)
		if err != nil {
			var zero T
			return zero, err
		}
		if IsFiltered(out) {
			return out, nil
		}
		current = out
	}
	return current, nil
}

var _ port.ItemProcessor[any, any] = (*CompositeItemProcessor[any])(nil)
