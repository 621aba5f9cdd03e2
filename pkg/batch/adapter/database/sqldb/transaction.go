package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
)

// SQLTransactionManager implements tx.TransactionManager over a *sql.DB.
type SQLTransactionManager struct {
	conn *Connection
}

// NewSQLTransactionManager creates a manager for conn.
func NewSQLTransactionManager(conn *Connection) *SQLTransactionManager {
	return &SQLTransactionManager{conn: conn}
}

// Begin implements tx.TransactionManager.
func (m *SQLTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}
	sqlTx, err := m.conn.db.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, exception.NewDataAccessError("sqldb", "failed to begin transaction", err)
	}
	return &SQLTxAdapter{tx: sqlTx, dialect: m.conn.dialect}, nil
}

// Commit implements tx.TransactionManager.
func (m *SQLTransactionManager) Commit(t tx.Tx) error {
	a, ok := t.(*SQLTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *SQLTxAdapter")
	}
	return a.tx.Commit()
}

// Rollback implements tx.TransactionManager.
func (m *SQLTransactionManager) Rollback(t tx.Tx) error {
	a, ok := t.(*SQLTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *SQLTxAdapter")
	}
	return a.tx.Rollback()
}

// SQLTxAdapter implements tx.Tx over a *sql.Tx.
type SQLTxAdapter struct {
	tx      *sql.Tx
	dialect Dialect
}

// ExecNamed implements tx.TxExecutor.
func (t *SQLTxAdapter) ExecNamed(ctx context.Context, query string, params map[string]interface{}) (int64, error) {
	c := namedsql.Compile(query, t.dialect.Style)
	args, err := c.Bind(params)
	if err != nil {
		return 0, exception.NewValidationError("sqldb", "failed to bind statement parameters", err)
	}
	res, err := t.tx.ExecContext(ctx, c.SQL, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PrepareNamed implements tx.TxExecutor.
func (t *SQLTxAdapter) PrepareNamed(ctx context.Context, query string) (tx.Stmt, error) {
	c := namedsql.Compile(query, t.dialect.Style)
	stmt, err := t.tx.PrepareContext(ctx, c.SQL)
	if err != nil {
		return nil, err
	}
	return &sqlStmt{stmt: stmt, compiled: c}, nil
}

// ExecuteUpsert implements tx.TxExecutor. model must be a map[string]interface{}
// or a []map[string]interface{} keyed by column name.
func (t *SQLTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	rows, err := columnRows(model)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, row := range rows {
		query, args, err := buildUpsert(t.dialect, tableName, row, conflictColumns, updateColumns)
		if err != nil {
			return total, err
		}
		res, err := t.tx.ExecContext(ctx, query, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// Savepoint implements tx.Tx.
func (t *SQLTxAdapter) Savepoint(name string) error {
	_, err := t.tx.Exec("SAVEPOINT " + name)
	return err
}

// RollbackToSavepoint implements tx.Tx.
func (t *SQLTxAdapter) RollbackToSavepoint(name string) error {
	_, err := t.tx.Exec("ROLLBACK TO SAVEPOINT " + name)
	return err
}

type sqlStmt struct {
	stmt     *sql.Stmt
	compiled namedsql.Compiled
}

func (s *sqlStmt) Exec(ctx context.Context, params map[string]interface{}) (int64, error) {
	args, err := s.compiled.Bind(params)
	if err != nil {
		return 0, exception.NewValidationError("sqldb", "failed to bind statement parameters", err)
	}
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqlStmt) Close() error { return s.stmt.Close() }

var (
	_ tx.TransactionManager = (*SQLTransactionManager)(nil)
	_ tx.Tx                 = (*SQLTxAdapter)(nil)
)
