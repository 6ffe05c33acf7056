package cppdbc

import "context"

// Connection is the Physical Connection contract (§4.4): an opaque,
// single-holder handle to one live backend session. After Close, every
// further operation fails with errors.CodeConnectionClosed; Close is
// idempotent.
type Connection interface {
	// ExecuteUpdate runs a statement that does not return rows (INSERT,
	// UPDATE, DELETE, DDL) and returns the number of rows affected. DDL
	// yields 0.
	ExecuteUpdate(ctx context.Context, sql string, args ...any) (uint64, error)

	// ExecuteQuery runs a statement that returns rows.
	ExecuteQuery(ctx context.Context, sql string, args ...any) (ResultSet, error)

	// PrepareStatement compiles sql with 1-based positional placeholders.
	PrepareStatement(ctx context.Context, sql string) (PreparedStatement, error)

	// SetAutoCommit toggles autocommit. Disabling it without an explicit
	// BeginTransaction call is backend-dependent; callers normally pair it
	// with BeginTransaction.
	SetAutoCommit(ctx context.Context, enabled bool) error

	// GetAutoCommit reports the current autocommit flag.
	GetAutoCommit() bool

	// BeginTransaction starts a transaction, returning true if it was
	// started and false if one was already active. Autocommit is false
	// for the duration.
	BeginTransaction(ctx context.Context) (bool, error)

	// Commit ends the active transaction, restoring autocommit to true.
	Commit(ctx context.Context) error

	// Rollback aborts the active transaction, restoring autocommit to true.
	Rollback(ctx context.Context) error

	// TransactionActive reports whether a transaction is currently open.
	TransactionActive() bool

	// SetTransactionIsolation sets the isolation level for subsequent
	// transactions. Backends may reject unsupported levels with
	// errors.CodeUnsupportedIsolation.
	SetTransactionIsolation(ctx context.Context, level IsolationLevel) error

	// GetTransactionIsolation returns the currently configured level.
	GetTransactionIsolation() IsolationLevel

	// Close is idempotent; it invalidates every PreparedStatement and
	// ResultSet this connection produced.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool

	// GetURL returns the URL this connection was opened from.
	GetURL() string
}
