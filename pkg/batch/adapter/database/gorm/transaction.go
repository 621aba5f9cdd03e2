package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// GormTxAdapter implements tx.Tx and is used by GormTransactionManager.
type GormTxAdapter struct {
	db *gorm.DB
}

// DB returns the transaction-scoped *gorm.DB.
func (t *GormTxAdapter) DB() *gorm.DB { return t.db }

// ExecNamed implements tx.TxExecutor. ":name" placeholders are rewritten to
// "?" and GORM renders them for the dialect.
func (t *GormTxAdapter) ExecNamed(ctx context.Context, query string, params map[string]interface{}) (int64, error) {
	c := namedsql.Compile(query, namedsql.Question)
	args, err := c.Bind(params)
	if err != nil {
		return 0, exception.NewValidationError("gorm", "failed to bind statement parameters", err)
	}
	result := t.db.WithContext(ctx).Exec(c.SQL, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// PrepareNamed implements tx.TxExecutor. The statement is compiled once and
// executed on the transaction's session.
func (t *GormTxAdapter) PrepareNamed(ctx context.Context, query string) (tx.Stmt, error) {
	return &gormStmt{db: t.db, compiled: namedsql.Compile(query, namedsql.Question)}, nil
}

// ExecuteUpsert implements tx.TxExecutor.
// model may be a struct pointer, a slice of structs, a column map or a slice of column maps.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error) {
	db := t.db.WithContext(ctx)

	if tableName != "" {
		db = db.Table(tableName)
	}

	var columns []clause.Column
	for _, col := range conflictColumns {
		columns = append(columns, clause.Column{Name: col})
	}

	onConflict := clause.OnConflict{
		Columns: columns,
	}

	if len(updateColumns) > 0 {
		// DO UPDATE
		onConflict.DoUpdates = clause.AssignmentColumns(updateColumns)
	} else {
		// DO NOTHING
		onConflict.DoNothing = true
	}

	result := db.Clauses(onConflict).Create(model)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Savepoint implements tx.Tx.
func (t *GormTxAdapter) Savepoint(name string) error {
	return t.db.SavePoint(name).Error
}

// RollbackToSavepoint implements tx.Tx.
func (t *GormTxAdapter) RollbackToSavepoint(name string) error {
	return t.db.RollbackTo(name).Error
}

type gormStmt struct {
	db       *gorm.DB
	compiled namedsql.Compiled
}

func (s *gormStmt) Exec(ctx context.Context, params map[string]interface{}) (int64, error) {
	args, err := s.compiled.Bind(params)
	if err != nil {
		return 0, exception.NewValidationError("gorm", "failed to bind statement parameters", err)
	}
	result := s.db.WithContext(ctx).Exec(s.compiled.SQL, args...)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *gormStmt) Close() error { return nil }

// GormTransactionManager implements tx.TransactionManager.
type GormTransactionManager struct {
	db *gorm.DB
}

// NewGormTransactionManager creates a manager that opens transactions on db.
func NewGormTransactionManager(db *gorm.DB) *GormTransactionManager {
	return &GormTransactionManager{db: db}
}

// Begin implements tx.TransactionManager.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	gormTx := m.db.WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, exception.NewDataAccessError("gorm", "failed to begin transaction", gormTx.Error)
	}
	return &GormTxAdapter{db: gormTx}, nil
}

// Commit implements tx.TransactionManager.
func (m *GormTransactionManager) Commit(t tx.Tx) error {
	gormTxAdapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTxAdapter.db.Commit().Error
}

// Rollback implements tx.TransactionManager.
func (m *GormTransactionManager) Rollback(t tx.Tx) error {
	gormTxAdapter, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTxAdapter.db.Rollback().Error
}

var (
	_ tx.TransactionManager = (*GormTransactionManager)(nil)
	_ tx.Tx                 = (*GormTxAdapter)(nil)
)
