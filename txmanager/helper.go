package txmanager

import (
	"context"

	cerrors "github.com/cppdbc/cppdbc-go/errors"
	"github.com/cppdbc/cppdbc-go/pool"
)

// Fn is the body of a unit of work run inside a transaction. The
// PooledConnection passed in is the one pinned to the transaction id; fn
// must not call Close on it — WithTransaction owns its lifecycle.
type Fn func(ctx context.Context, conn *pool.PooledConnection) error

// WithTransaction begins a transaction, runs fn with its pinned
// connection, and commits on success or rolls back on error or panic. It
// is the single-goroutine convenience counterpart to the cross-goroutine
// Begin/Get/Commit/Rollback API for the common case of one caller doing
// all the work itself.
func (m *Manager) WithTransaction(ctx context.Context, fn Fn) (err error) {
	txnID, err := m.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	conn, err := m.GetTransactionConnection(txnID)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = m.RollbackTransaction(ctx, txnID)
			panic(p)
		}
		if err != nil {
			_ = m.RollbackTransaction(ctx, txnID)
			return
		}
		err = m.CommitTransaction(ctx, txnID)
	}()

	err = fn(ctx, conn)
	return err
}

// WithResult runs fn inside a transaction via WithTransaction and returns
// its value alongside any error.
func WithResult[T any](ctx context.Context, m *Manager, fn func(ctx context.Context, conn *pool.PooledConnection) (T, error)) (T, error) {
	var result T
	err := m.WithTransaction(ctx, func(ctx context.Context, conn *pool.PooledConnection) error {
		var innerErr error
		result, innerErr = fn(ctx, conn)
		return innerErr
	})
	return result, err
}

// IsRetryable reports whether err, as returned by WithTransaction, is
// worth retrying (deadlock, serialization failure, transient
// unavailability). Callers that want retry-with-backoff around
// WithTransaction can gate on this.
func IsRetryable(err error) bool {
	return cerrors.IsRetryable(err)
}
