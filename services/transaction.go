package services

import (
	"context"

	"github.com/upb/jobtracker/repositories"
)

// WithTransactionResult runs fn inside txMgr.InTransaction and returns its result.
// fn receives the transaction-scoped context; repositories must be called with it.
// On error the zero value is returned and the transaction is rolled back.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T

	err := txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		var fnErr error
		result, fnErr = fn(txCtx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
