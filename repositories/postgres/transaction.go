package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/govoffice/docdesk/repositories"
	"go.uber.org/zap"
)

// TransactionManager opens transactions that repositories join through WithTx.
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{
		db:     db,
		logger: logger,
	}
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tm.logger.Debug("transaction started")
	return &Transaction{tx: sqlTx, logger: tm.logger}, nil
}

// Transaction wraps a *sql.Tx.
type Transaction struct {
	tx     *sql.Tx
	logger *zap.Logger
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished transaction is a no-op.
func (t *Transaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back")
	return nil
}

// Executor is satisfied by both *sql.DB and *sql.Tx.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFor returns the bound transaction, or the pool when tx is nil.
func executorFor(db *DB, tx *Transaction) Executor {
	if tx != nil {
		return tx.tx
	}
	return db.DB
}

// boundTx unwraps a transaction created by this package. Foreign
// implementations are ignored and the repository runs on the pool.
func boundTx(tx repositories.Transaction) *Transaction {
	if pgTx, ok := tx.(*Transaction); ok {
		return pgTx
	}
	return nil
}
