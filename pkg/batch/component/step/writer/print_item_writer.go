package writer

import (
	"context"
	"fmt"
	"io"
	"os"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// PrintItemWriter prints one line per item. Format defaults to fmt's %+v.
type PrintItemWriter[T any] struct {
	out    io.Writer
	format func(T) string
}

// NewPrintItemWriter creates a writer to out, or stdout when out is nil.
func NewPrintItemWriter[T any](out io.Writer, format func(T) string) *PrintItemWriter[T] {
	if out == nil {
		out = os.Stdout
	}
	if format == nil {
		format = func(item T) string { return fmt.Sprintf("%+v", item) }
	}
	return &PrintItemWriter[T]{out: out, format: format}
}

func (w *PrintItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error { return nil }

func (w *PrintItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	for _, item := range items {
		if _, err := fmt.Fprintln(w.out, w.format(item)); err != nil {
			return exception.NewDataAccessError("PrintItemWriter", "print failed", err)
		}
	}
	return nil
}

func (w *PrintItemWriter[T]) Close(ctx context.Context) error { return nil }

var _ port.ItemWriter[any] = (*PrintItemWriter[any])(nil)
