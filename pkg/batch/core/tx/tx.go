// Package tx abstracts the transaction that wraps every chunk write.
// Relational and ORM adapters implement it; file and message sinks run
// under NoOpTransactionManager.
package tx

import (
	"context"
	"database/sql"
	"errors"
)

// ErrNoDatabase is returned by executors that have no database behind them.
var ErrNoDatabase = errors.New("transaction has no database bound")

// Stmt is a statement prepared for repeated execution inside one transaction.
type Stmt interface {
	// Exec runs the statement with named parameters and returns the affected row count.
	Exec(ctx context.Context, params map[string]interface{}) (int64, error)
	// Close releases the statement.
	Close() error
}

// TxExecutor is the set of write operations available inside a chunk transaction.
// Statements use ":name" placeholders; implementations translate them for their driver.
type TxExecutor interface {
	// ExecNamed runs one statement with named parameters.
	ExecNamed(ctx context.Context, query string, params map[string]interface{}) (int64, error)
	// PrepareNamed prepares a statement for a batch of executions.
	PrepareNamed(ctx context.Context, query string) (Stmt, error)
	// ExecuteUpsert inserts model (a struct pointer or slice) into tableName, updating
	// updateColumns when conflictColumns collide.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error)
}

// Tx is an open transaction.
type Tx interface {
	TxExecutor
	// Savepoint creates a savepoint inside the transaction.
	Savepoint(name string) error
	// RollbackToSavepoint undoes work done after the named savepoint.
	RollbackToSavepoint(name string) error
}

// TransactionManager begins, commits and rolls back transactions.
type TransactionManager interface {
	// Begin opens a transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits t.
	Commit(t Tx) error
	// Rollback rolls t back.
	Rollback(t Tx) error
}
