package services

import (
	"context"
	"fmt"

	"github.com/govoffice/docdesk/repositories"
)

// TxFunc is the unit of work run by WithTransaction.
type TxFunc func(ctx context.Context, tx repositories.Transaction) error

// WithTransaction runs fn inside a transaction. The transaction commits when
// fn returns nil and rolls back on error or panic.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn TxFunc) error {
	_, err := WithTransactionResult(ctx, txMgr, func(ctx context.Context, tx repositories.Transaction) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult is WithTransaction for units of work that produce a value.
// The zero value of T is returned whenever the transaction does not commit.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) (T, error)) (T, error) {
	var zero T

	tx, err := txMgr.Begin(ctx)
	if err != nil {
		return zero, WrapInternal("failed to begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	result, err := fn(ctx, tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return zero, fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, WrapInternal("failed to commit transaction", err)
	}
	committed = true

	return result, nil
}
