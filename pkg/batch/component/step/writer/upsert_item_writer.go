package writer

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/mapping"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

func toRows[T any](m *mapping.SchemaMapping, items []T) ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		row, err := m.ToRow(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UpsertItemWriter upserts items through tx.TxExecutor.ExecuteUpsert, so it
// works on any transaction manager with upsert support. Large chunks are split
// into statements of at most bulkSize rows.
type UpsertItemWriter[T any] struct {
	name     string
	bulkSize int
	mapping  *mapping.SchemaMapping
}

// NewUpsertItemWriter creates an upsert writer for the table of m, keyed by m.Key.
func NewUpsertItemWriter[T any](name string, bulkSize int, m *mapping.SchemaMapping) (*UpsertItemWriter[T], error) {
	if m == nil || m.Table == "" {
		return nil, exception.NewConfigurationError("UpsertItemWriter", fmt.Sprintf("'%s': schema mapping with a table is required", name))
	}
	if len(m.Key) == 0 {
		return nil, exception.NewConfigurationError("UpsertItemWriter", fmt.Sprintf("'%s': schema mapping for %s has no key", name, m.Table))
	}
	if bulkSize <= 0 {
		bulkSize = 100
	}
	return &UpsertItemWriter[T]{name: name, bulkSize: bulkSize, mapping: m}, nil
}

// Open implements port.ItemStream.
func (w *UpsertItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error { return nil }

// Write implements port.ItemWriter.
func (w *UpsertItemWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	if t == nil {
		return exception.NewConfigurationError("UpsertItemWriter", fmt.Sprintf("'%s': a transaction is required", w.name))
	}
	rows, err := toRows(w.mapping, items)
	if err != nil {
		return exception.NewValidationError("UpsertItemWriter", fmt.Sprintf("'%s': failed to map items", w.name), err)
	}
	for i := 0; i < len(rows); i += w.bulkSize {
		end := i + w.bulkSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := t.ExecuteUpsert(ctx, rows[i:end], w.mapping.Table, w.mapping.Key, w.mapping.UpdateColumns()); err != nil {
			return exception.NewDataAccessError("UpsertItemWriter", fmt.Sprintf("'%s': upsert into %s failed (rows %d-%d)", w.name, w.mapping.Table, i, end-1), err)
		}
	}
	logger.Debugf("UpsertItemWriter '%s': upserted %d rows into %s.", w.name, len(rows), w.mapping.Table)
	return nil
}

// Close implements port.ItemStream.
func (w *UpsertItemWriter[T]) Close(ctx context.Context) error { return nil }

// gormSession is implemented by transactions backed by GORM.
type gormSession interface {
	DB() *gorm.DB
}

// GormPersistItemWriter persists each chunk through the GORM session of the
// chunk transaction: an insert that updates the non-key columns on conflict.
type GormPersistItemWriter[T any] struct {
	name    string
	mapping *mapping.SchemaMapping
}

// NewGormPersistItemWriter creates a writer for the table of m.
func NewGormPersistItemWriter[T any](name string, m *mapping.SchemaMapping) (*GormPersistItemWriter[T], error) {
	if m == nil || m.Table == "" {
		return nil, exception.NewConfigurationError("GormPersistItemWriter", fmt.Sprintf("'%s': schema mapping with a table is required", name))
	}
	return &GormPersistItemWriter[T]{name: name, mapping: m}, nil
}

// Open implements port.ItemStream.
func (w *GormPersistItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	return nil
}

// Write implements port.ItemWriter. t must come from a GormTransactionManager.
func (w *GormPersistItemWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	session, ok := t.(gormSession)
	if !ok {
		return exception.NewConfigurationError("GormPersistItemWriter", fmt.Sprintf("'%s': requires a GORM transaction, got %T", w.name, t))
	}
	rows, err := toRows(w.mapping, items)
	if err != nil {
		return exception.NewValidationError("GormPersistItemWriter", fmt.Sprintf("'%s': failed to map items", w.name), err)
	}

	onConflict := clause.OnConflict{}
	for _, k := range w.mapping.Key {
		onConflict.Columns = append(onConflict.Columns, clause.Column{Name: k})
	}
	if update := w.mapping.UpdateColumns(); len(update) > 0 && len(onConflict.Columns) > 0 {
		onConflict.DoUpdates = clause.AssignmentColumns(update)
	} else {
		onConflict.DoNothing = true
	}

	db := session.DB().WithContext(ctx).Table(w.mapping.Table)
	if len(onConflict.Columns) > 0 {
		db = db.Clauses(onConflict)
	}
	if err := db.Create(rows).Error; err != nil {
		return exception.NewDataAccessError("GormPersistItemWriter", fmt.Sprintf("'%s': persist into %s failed", w.name, w.mapping.Table), err)
	}
	logger.Debugf("GormPersistItemWriter '%s': persisted %d rows into %s.", w.name, len(rows), w.mapping.Table)
	return nil
}

// Close implements port.ItemStream.
func (w *GormPersistItemWriter[T]) Close(ctx context.Context) error {
	return nil
}

var (
	_ port.ItemWriter[any] = (*UpsertItemWriter[any])(nil)
	_ port.ItemWriter[any] = (*GormPersistItemWriter[any])(nil)
)
