// Package writer provides the item sinks chunk steps write to: flat files,
// SQL statements, GORM upserts, Parquet objects, Kafka topics and plain output.
package writer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/statement"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ParamsFunc renders the named parameters of one item.
type ParamsFunc[T any] func(item T) (map[string]interface{}, error)

// StructParams returns the exported fields of a struct item keyed by their
// lower-cased names, so "UPDATE CUSTOMER SET AGE = :age WHERE ID = :id" binds
// Customer.Age and Customer.ID.
func StructParams[T any]() ParamsFunc[T] {
	return func(item T) (map[string]interface{}, error) {
		fields := make(map[string]interface{})
		if err := mapstructure.Decode(item, &fields); err != nil {
			return nil, err
		}
		params := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			params[strings.ToLower(k)] = v
		}
		return params, nil
	}
}

// SQLBatchItemWriter executes one parameterized statement per item inside the
// chunk transaction. The statement is prepared once per chunk.
type SQLBatchItemWriter[T any] struct {
	name   string
	query  string
	params ParamsFunc[T]
	// assertUpdates fails the chunk when an item affects no row.
	assertUpdates bool
}

// NewSQLBatchItemWriter creates a writer for query. ":name" placeholders are
// bound from params.
func NewSQLBatchItemWriter[T any](name, query string, params ParamsFunc[T]) (*SQLBatchItemWriter[T], error) {
	if query == "" {
		return nil, exception.NewConfigurationError("SQLBatchItemWriter", fmt.Sprintf("'%s': statement is required", name))
	}
	if params == nil {
		return nil, exception.NewConfigurationError("SQLBatchItemWriter", fmt.Sprintf("'%s': parameter function is required", name))
	}
	return &SQLBatchItemWriter[T]{name: name, query: query, params: params}, nil
}

// NewNamedStatementItemWriter creates a SQLBatchItemWriter for the statement
// registered as statementID.
func NewNamedStatementItemWriter[T any](registry *statement.Registry, statementID string, params ParamsFunc[T]) (*SQLBatchItemWriter[T], error) {
	if registry == nil {
		return nil, exception.NewConfigurationError("NamedStatementItemWriter", "statement registry is required")
	}
	query, err := registry.Get(statementID)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = StructParams[T]()
	}
	return NewSQLBatchItemWriter[T](statementID, query, params)
}

// AssertUpdates makes a write that affects no row fail the chunk.
func (w *SQLBatchItemWriter[T]) AssertUpdates(v bool) *SQLBatchItemWriter[T] {
	w.assertUpdates = v
	return w
}

// Open implements port.ItemStream.
func (w *SQLBatchItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	return nil
}

// Write implements port.ItemWriter.
func (w *SQLBatchItemWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	if t == nil {
		return exception.NewConfigurationError("SQLBatchItemWriter", fmt.Sprintf("'%s': a transaction is required", w.name))
	}
	stmt, err := t.PrepareNamed(ctx, w.query)
	if err != nil {
		return exception.NewDataAccessError("SQLBatchItemWriter", fmt.Sprintf("'%s': failed to prepare statement", w.name), err)
	}
	defer stmt.Close()

	for i, item := range items {
		params, err := w.params(item)
		if err != nil {
			return exception.NewValidationError("SQLBatchItemWriter", fmt.Sprintf("'%s': item %d: failed to build parameters", w.name, i), err)
		}
		n, err := stmt.Exec(ctx, params)
		if err != nil {
			if exception.KindOf(err) != exception.KindUnknown {
				return err
			}
			return exception.NewDataAccessError("SQLBatchItemWriter", fmt.Sprintf("'%s': item %d: statement failed", w.name, i), err)
		}
		if w.assertUpdates && n == 0 {
			return exception.NewDataAccessError("SQLBatchItemWriter", fmt.Sprintf("'%s': item %d did not update any row", w.name, i), nil)
		}
	}
	logger.Debugf("SQLBatchItemWriter '%s': wrote %d items.", w.name, len(items))
	return nil
}

// Close implements port.ItemStream.
func (w *SQLBatchItemWriter[T]) Close(ctx context.Context) error {
	return nil
}

var _ port.ItemWriter[any] = (*SQLBatchItemWriter[any])(nil)
