// Package cppdbc defines the contracts shared by every database driver:
// the physical connection, prepared statement, and result set surfaces the
// connection pool and transaction manager build on, plus the process-wide
// driver registry that resolves a cpp_dbc URL scheme to a driver.
package cppdbc

import "context"

// Family distinguishes the two driver capability shapes the pool
// understands. The relational family is what the pool operates on;
// columnar drivers are used directly by callers.
type Family string

const (
	Relational Family = "relational"
	Columnar   Family = "columnar"
)

// IsolationLevel names a transaction isolation level. Not every backend
// accepts every level; a Driver advertises which ones it accepts via
// AcceptedIsolationLevels.
type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "read-uncommitted"
	ReadCommitted   IsolationLevel = "read-committed"
	RepeatableRead  IsolationLevel = "repeatable-read"
	Serializable    IsolationLevel = "serializable"
)

// Options carries driver-specific key/value configuration (charset,
// timeouts, SSL mode, PRAGMAs, ...), parsed already by the caller.
type Options map[string]string

// Driver is the capability to open a fresh Connection from a URL,
// credentials, and an options map. Each driver advertises exactly one
// Family and the isolation levels its backend accepts.
type Driver interface {
	// Scheme is the URL scheme this driver answers to, e.g. "mysql".
	Scheme() string

	// Family reports whether this driver is relational or columnar.
	Family() Family

	// Connect opens a new physical connection to the backend named by url.
	Connect(ctx context.Context, url, user, password string, opts Options) (Connection, error)

	// AcceptedIsolationLevels lists the isolation levels this backend will
	// honor. A pool configured with a level outside this set fails at
	// construction with UnsupportedIsolation.
	AcceptedIsolationLevels() []IsolationLevel
}

// AcceptsIsolation reports whether level is in driver's accepted set.
func AcceptsIsolation(d Driver, level IsolationLevel) bool {
	for _, l := range d.AcceptedIsolationLevels() {
		if l == level {
			return true
		}
	}
	return false
}
