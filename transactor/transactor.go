package transactor

import (
	"context"
	"fmt"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	"github.com/cppdbc/cppdbc-go/txmanager"
)

type txKey struct{}

// PoolTransactor implements Transactor on top of a txmanager.Manager: each
// call to Atomically begins a transaction, pins a pooled connection to it
// for fn's duration, and commits or rolls back depending on fn's outcome —
// the single-goroutine counterpart to txmanager's cross-goroutine pinning.
type PoolTransactor struct {
	tm *txmanager.Manager
}

// NewTransactor wraps tm.
func NewTransactor(tm *txmanager.Manager) *PoolTransactor {
	return &PoolTransactor{tm: tm}
}

func (t *PoolTransactor) Atomically(ctx context.Context, fn TxFn) (err error) {
	if conn, ok := ctx.Value(txKey{}).(cppdbc.Connection); ok {
		return fn(ctx, conn)
	}

	txID, err := t.tm.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("transactor: begin transaction: %w", err)
	}

	conn, err := t.tm.GetTransactionConnection(txID)
	if err != nil {
		return fmt.Errorf("transactor: get transaction connection: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = t.tm.RollbackTransaction(ctx, txID)
			panic(p)
		} else if err != nil {
			_ = t.tm.RollbackTransaction(ctx, txID)
		} else if commitErr := t.tm.CommitTransaction(ctx, txID); commitErr != nil {
			err = fmt.Errorf("transactor: commit transaction: %w", commitErr)
		}
	}()

	txCtx := context.WithValue(ctx, txKey{}, cppdbc.Connection(conn))
	err = fn(txCtx, conn)
	return err
}
