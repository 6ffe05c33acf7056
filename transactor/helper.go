package transactor

import (
	"context"

	"github.com/cppdbc/cppdbc-go/cppdbc"
)

// WithResult adapts a value-returning unit of work to Atomically.
func WithResult[T any](ctx context.Context, t Transactor, fn TxFnResult[T]) (T, error) {
	var result T
	err := t.Atomically(ctx, func(txCtx context.Context, conn cppdbc.Connection) error {
		var err error
		result, err = fn(txCtx, conn)
		return err
	})
	return result, err
}

// GetConnection returns the transactional connection pinned to ctx by an
// enclosing Atomically call, or nil outside one.
func GetConnection(ctx context.Context) cppdbc.Connection {
	if conn, ok := ctx.Value(txKey{}).(cppdbc.Connection); ok {
		return conn
	}
	return nil
}
