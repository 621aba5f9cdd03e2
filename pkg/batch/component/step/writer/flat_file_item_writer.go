package writer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// FieldExtractor splits an item into the tokens of one delimited line.
type FieldExtractor[T any] func(item T) ([]string, error)

// LineAggregator renders an item as one complete line, without the line break.
type LineAggregator[T any] func(item T) (string, error)

// HeaderCallback writes the header when the file is opened.
type HeaderCallback func(w io.Writer) error

// FooterCallback writes the footer when the file is closed. totals is a
// snapshot of the step's AggregateState, empty when none was configured.
type FooterCallback func(w io.Writer, totals map[string]int64) error

// FlatFileItemWriterConfig configures a FlatFileItemWriter. Exactly one of
// Fields and Aggregator must be set.
type FlatFileItemWriterConfig[T any] struct {
	Name string
	Path string
	// Delimiter is used with Fields. Zero means ','.
	Delimiter  rune
	Fields     FieldExtractor[T]
	Aggregator LineAggregator[T]
	Header     HeaderCallback
	Footer     FooterCallback
	Aggregate  *model.AggregateState
	// Append keeps existing content instead of truncating the file.
	Append bool
}

// FlatFileItemWriter writes items as lines of a text file. Each chunk is
// rendered in memory and appended with a single write, so a chunk that fails
// to render leaves the file untouched.
type FlatFileItemWriter[T any] struct {
	cfg     FlatFileItemWriterConfig[T]
	file    *os.File
	written int
}

// NewFlatFileItemWriter validates cfg and creates the writer.
func NewFlatFileItemWriter[T any](cfg FlatFileItemWriterConfig[T]) (*FlatFileItemWriter[T], error) {
	if cfg.Name == "" {
		cfg.Name = "flatFileItemWriter"
	}
	if cfg.Path == "" {
		return nil, exception.NewConfigurationError("FlatFileItemWriter", fmt.Sprintf("'%s': path is required", cfg.Name))
	}
	if (cfg.Fields == nil) == (cfg.Aggregator == nil) {
		return nil, exception.NewConfigurationError("FlatFileItemWriter", fmt.Sprintf("'%s': set exactly one of field extractor and line aggregator", cfg.Name))
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &FlatFileItemWriter[T]{cfg: cfg}, nil
}

// Open creates the file and writes the header.
func (w *FlatFileItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	if dir := filepath.Dir(w.cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exception.NewDataAccessError("FlatFileItemWriter", fmt.Sprintf("'%s': failed to create %s", w.cfg.Name, dir), err)
		}
	}
	flags := os.O_CREATE | os.O_WRONLY
	if w.cfg.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(w.cfg.Path, flags, 0o644)
	if err != nil {
		return exception.NewDataAccessError("FlatFileItemWriter", fmt.Sprintf("'%s': failed to open %s", w.cfg.Name, w.cfg.Path), err)
	}
	w.file = f
	w.written = 0

	if w.cfg.Header != nil {
		var buf bytes.Buffer
		if err := w.cfg.Header(&buf); err != nil {
			return exception.NewDataAccessError("FlatFileItemWriter", fmt.Sprintf("'%s': header callback failed", w.cfg.Name), err)
		}
		if err := w.flush(&buf); err != nil {
			return err
		}
	}
	logger.Debugf("FlatFileItemWriter '%s': opened %s.", w.cfg.Name, w.cfg.Path)
	return nil
}

// Write implements port.ItemWriter. The transaction is not used.
func (w *FlatFileItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	if w.file == nil {
		return exception.NewConfigurationError("FlatFileItemWriter", fmt.Sprintf("'%s': writer is not open", w.cfg.Name))
	}
	if len(items) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if w.cfg.Aggregator != nil {
		for i, item := range items {
			line, err := w.cfg.Aggregator(item)
			if err != nil {
				return exception.NewValidationError("FlatFileItemWriter", fmt.Sprintf("'%s': item %d cannot be rendered", w.cfg.Name, i), err)
			}
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	} else {
		cw := csv.NewWriter(&buf)
		cw.Comma = w.cfg.Delimiter
		for i, item := range items {
			fields, err := w.cfg.Fields(item)
			if err != nil {
				return exception.NewValidationError("FlatFileItemWriter", fmt.Sprintf("'%s': item %d cannot be rendered", w.cfg.Name, i), err)
			}
			if err := cw.Write(fields); err != nil {
				return exception.NewValidationError("FlatFileItemWriter", fmt.Sprintf("'%s': item %d cannot be rendered", w.cfg.Name, i), err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return exception.NewValidationError("FlatFileItemWriter", fmt.Sprintf("'%s': chunk cannot be rendered", w.cfg.Name), err)
		}
	}
	if err := w.flush(&buf); err != nil {
		return err
	}
	w.written += len(items)
	return nil
}

// Close writes the footer and closes the file.
func (w *FlatFileItemWriter[T]) Close(ctx context.Context) error {
	if w.file == nil {
		return nil
	}
	defer func() { w.file = nil }()

	if w.cfg.Footer != nil {
		totals := map[string]int64{}
		if w.cfg.Aggregate != nil {
			totals = w.cfg.Aggregate.Snapshot()
		}
		var buf bytes.Buffer
		if err := w.cfg.Footer(&buf, totals); err != nil {
			w.file.Close()
			return exception.NewDataAccessError("FlatFileItemWriter", fmt.Sprintf("'%s': footer callback failed", w.cfg.Name), err)
		}
		if err := w.flush(&buf); err != nil {
			w.file.Close()
			return err
		}
	}
	if err := w.file.Close(); err != nil {
		return exception.NewDataAccessError("FlatFileItemWriter", fmt.Sprintf("'%s': close failed", w.cfg.Name), err)
	}
	logger.Debugf("FlatFileItemWriter '%s': closed %s after %d items.", w.cfg.Name, w.cfg.Path, w.written)
	return nil
}

func (w *FlatFileItemWriter[T]) flush(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		return nil
	}
	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return exception.NewDataAccessError("FlatFileItemWriter", fmt.Sprintf("'%s': write to %s failed", w.cfg.Name, w.cfg.Path), err)
	}
	return nil
}

var _ port.ItemWriter[any] = (*FlatFileItemWriter[any])(nil)
