package reader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// FieldSetMapper builds an item from one tokenized line.
type FieldSetMapper[T any] func(fs FieldSet) (T, error)

// FlatFileItemReaderConfig configures a FlatFileItemReader.
type FlatFileItemReaderConfig[T any] struct {
	Name string
	// FS is the file system Path is resolved against. Nil means the OS file system.
	FS   fs.FS
	Path string
	// Delimiter separates tokens. Zero means ','.
	Delimiter rune
	// LinesToSkip lines (e.g. a header) are discarded on Open.
	LinesToSkip int
	// Names, if set, allow FieldSet access by name.
	Names  []string
	Mapper FieldSetMapper[T]
}

// FlatFileItemReader reads a delimited text file line by line. A line that
// cannot be tokenized or mapped fails with a ValidationError naming the line.
type FlatFileItemReader[T any] struct {
	cfg       FlatFileItemReaderConfig[T]
	file      io.ReadCloser
	csv       *csv.Reader
	line      int
	readCount int
	ec        model.ExecutionContext
}

// NewFlatFileItemReader validates cfg and creates the reader.
func NewFlatFileItemReader[T any](cfg FlatFileItemReaderConfig[T]) (*FlatFileItemReader[T], error) {
	if cfg.Name == "" {
		cfg.Name = "flatFileItemReader"
	}
	if cfg.Path == "" {
		return nil, exception.NewConfigurationError("FlatFileItemReader", fmt.Sprintf("'%s': path is required", cfg.Name))
	}
	if cfg.Mapper == nil {
		return nil, exception.NewConfigurationError("FlatFileItemReader", fmt.Sprintf("'%s': field set mapper is required", cfg.Name))
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &FlatFileItemReader[T]{cfg: cfg, ec: model.NewExecutionContext()}, nil
}

// Open opens the file and skips the configured leading lines.
func (r *FlatFileItemReader[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	var (
		f   io.ReadCloser
		err error
	)
	if r.cfg.FS != nil {
		f, err = r.cfg.FS.Open(r.cfg.Path)
	} else {
		f, err = os.Open(r.cfg.Path)
	}
	if err != nil {
		return exception.NewDataAccessError("FlatFileItemReader", fmt.Sprintf("'%s': failed to open %s", r.cfg.Name, r.cfg.Path), err)
	}
	r.file = f
	r.csv = csv.NewReader(bufio.NewReader(f))
	r.csv.Comma = r.cfg.Delimiter
	r.csv.FieldsPerRecord = -1
	r.csv.LazyQuotes = true
	r.csv.ReuseRecord = false
	r.line = 0
	r.readCount = 0
	if ec != nil {
		r.ec = ec
	}

	for i := 0; i < r.cfg.LinesToSkip; i++ {
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return exception.NewValidationError("FlatFileItemReader", fmt.Sprintf("'%s': failed to skip line %d", r.cfg.Name, i+1), err)
		}
		r.line++
	}
	logger.Debugf("FlatFileItemReader '%s': opened %s.", r.cfg.Name, r.cfg.Path)
	return nil
}

// Read returns the next mapped line, or port.ErrNoMoreItems at end of file.
func (r *FlatFileItemReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.csv == nil {
		return zero, exception.NewConfigurationError("FlatFileItemReader", fmt.Sprintf("'%s': reader is not open", r.cfg.Name))
	}
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return zero, port.ErrNoMoreItems
	}
	r.line++
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return zero, exception.NewValidationError("FlatFileItemReader", fmt.Sprintf("'%s': malformed line %d", r.cfg.Name, perr.Line), err)
		}
		return zero, exception.NewDataAccessError("FlatFileItemReader", fmt.Sprintf("'%s': read failed at line %d", r.cfg.Name, r.line), err)
	}
	item, err := r.cfg.Mapper(NewFieldSet(r.cfg.Names, record, r.line))
	if err != nil {
		if exception.KindOf(err) == exception.KindValidation {
			return zero, err
		}
		return zero, exception.NewValidationError("FlatFileItemReader", fmt.Sprintf("'%s': cannot map line %d", r.cfg.Name, r.line), err)
	}
	r.readCount++
	r.ec.Put(r.cfg.Name+".read.count", r.readCount)
	return item, nil
}

// Close closes the file.
func (r *FlatFileItemReader[T]) Close(ctx context.Context) error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.csv = nil
	if err != nil {
		return exception.NewDataAccessError("FlatFileItemReader", fmt.Sprintf("'%s': close failed", r.cfg.Name), err)
	}
	return nil
}

// GetExecutionContext implements port.ExecutionContextAware.
func (r *FlatFileItemReader[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return r.ec.Copy(), nil
}

var _ port.ItemReader[any] = (*FlatFileItemReader[any])(nil)
