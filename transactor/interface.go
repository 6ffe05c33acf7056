// Package transactor gives single-goroutine callers a synchronous
// "run this function inside a transaction" helper layered over txmanager.
// Nesting is detected via a context value sentinel, reusing the
// already-open connection instead of beginning a new transaction.
package transactor

import (
	"context"

	"github.com/cppdbc/cppdbc-go/cppdbc"
)

// TxFn is a unit of work run inside a transaction.
type TxFn func(ctx context.Context, conn cppdbc.Connection) error

// TxFnResult is TxFn's value-returning counterpart, used by WithResult.
type TxFnResult[T any] func(ctx context.Context, conn cppdbc.Connection) (T, error)

// Transactor runs fn inside a pinned transaction, committing on success and
// rolling back on error or panic.
type Transactor interface {
	Atomically(ctx context.Context, fn TxFn) error
}
