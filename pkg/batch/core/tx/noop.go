package tx

import (
	"context"
	"database/sql"
	"sync/atomic"
)

// NoOpTransactionManager hands out transactions with no database behind
// them. Steps that write to files, stdout or brokers use it so that the
// chunk loop stays identical for every sink.
type NoOpTransactionManager struct {
	begun      atomic.Int64
	committed  atomic.Int64
	rolledBack atomic.Int64
}

// NewNoOpTransactionManager returns a manager that only counts calls.
func NewNoOpTransactionManager() *NoOpTransactionManager {
	return &NoOpTransactionManager{}
}

// Begin implements TransactionManager.
func (m *NoOpTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error) {
	m.begun.Add(1)
	return noopTx{}, nil
}

// Commit implements TransactionManager.
func (m *NoOpTransactionManager) Commit(Tx) error {
	m.committed.Add(1)
	return nil
}

// Rollback implements TransactionManager.
func (m *NoOpTransactionManager) Rollback(Tx) error {
	m.rolledBack.Add(1)
	return nil
}

// Counts returns how many transactions were begun, committed and rolled back.
func (m *NoOpTransactionManager) Counts() (begun, committed, rolledBack int64) {
	return m.begun.Load(), m.committed.Load(), m.rolledBack.Load()
}

type noopTx struct{}

func (noopTx) ExecNamed(context.Context, string, map[string]interface{}) (int64, error) {
	return 0, ErrNoDatabase
}
func (noopTx) PrepareNamed(context.Context, string) (Stmt, error) { return nil, ErrNoDatabase }
func (noopTx) ExecuteUpsert(context.Context, interface{}, string, []string, []string) (int64, error) {
	return 0, ErrNoDatabase
}
func (noopTx) Savepoint(string) error           { return nil }
func (noopTx) RollbackToSavepoint(string) error { return nil }

var _ TransactionManager = (*NoOpTransactionManager)(nil)
