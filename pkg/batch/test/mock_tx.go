// Package test holds mocks and fixtures shared by the package tests of the batch engine.
package test

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	tx "github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
)

// MockTx is a mock implementation of the tx.Tx interface.
type MockTx struct {
	mock.Mock
}

// ExecNamed mocks tx.TxExecutor.ExecNamed.
func (m *MockTx) ExecNamed(ctx context.Context, query string, params map[string]interface{}) (int64, error) {
	args := m.Called(ctx, query, params)
	return args.Get(0).(int64), args.Error(1)
}

// PrepareNamed mocks tx.TxExecutor.PrepareNamed.
func (m *MockTx) PrepareNamed(ctx context.Context, query string) (tx.Stmt, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Stmt), args.Error(1)
}

// ExecuteUpsert mocks tx.TxExecutor.ExecuteUpsert.
func (m *MockTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	args := m.Called(ctx, model, tableName, conflictColumns, updateColumns)
	return args.Get(0).(int64), args.Error(1)
}

// Savepoint mocks tx.Tx.Savepoint.
func (m *MockTx) Savepoint(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// RollbackToSavepoint mocks tx.Tx.RollbackToSavepoint.
func (m *MockTx) RollbackToSavepoint(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// MockTransactionManager is a mock implementation of tx.TransactionManager.
type MockTransactionManager struct {
	mock.Mock
}

// Begin mocks tx.TransactionManager.Begin.
func (m *MockTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (tx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(tx.Tx), args.Error(1)
}

// Commit mocks tx.TransactionManager.Commit.
func (m *MockTransactionManager) Commit(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

// Rollback mocks tx.TransactionManager.Rollback.
func (m *MockTransactionManager) Rollback(t tx.Tx) error {
	args := m.Called(t)
	return args.Error(0)
}

var (
	_ tx.Tx                 = (*MockTx)(nil)
	_ tx.TransactionManager = (*MockTransactionManager)(nil)
)
