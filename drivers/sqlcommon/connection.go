// Package sqlcommon implements the cppdbc Physical Connection, PreparedStatement,
// and ResultSet contracts (spec §4.4, §4.5) on top of database/sql, so the
// concrete postgres/mysql/sqlite drivers only need to supply a driver name,
// a DSN builder, and an accepted-isolation-levels list.
//
// Each Connection wraps a *sql.DB opened with SetMaxOpenConns(1): the
// connection pool in package pool already does the pooling (borrow,
// validate, evict, backfill), so every cppdbc.Connection this package
// produces is exactly one physical session, never a sub-pool of its own.
package sqlcommon

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

var isolationToSQL = map[cppdbc.IsolationLevel]sql.IsolationLevel{
	cppdbc.ReadUncommitted: sql.LevelReadUncommitted,
	cppdbc.ReadCommitted:   sql.LevelReadCommitted,
	cppdbc.RepeatableRead:  sql.LevelRepeatableRead,
	cppdbc.Serializable:    sql.LevelSerializable,
}

// Connection is a database/sql-backed cppdbc.Connection. It is not
// goroutine-safe for concurrent callers, matching the "single holder at a
// time" contract the pooled wrapper enforces (spec §5).
type Connection struct {
	db  *sql.DB
	url string

	mu         sync.Mutex
	tx         *sql.Tx
	autocommit bool
	isolation  cppdbc.IsolationLevel
	closed     atomic.Bool

	stmts   map[*Statement]struct{}
	stmtsMu sync.Mutex
}

// Open opens a single physical session against driverName using dsn and
// wraps it as a cppdbc.Connection. The caller supplies the URL the
// connection was opened from (for GetURL) separately from the DSN, since
// the two differ in shape across drivers.
func Open(ctx context.Context, driverName, dsn, url string, isolation cppdbc.IsolationLevel) (*Connection, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeConnectFailed, "open "+driverName+" connection")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, cerrors.Wrap(err, cerrors.CodeConnectFailed, "ping "+driverName+" connection")
	}

	return OpenDB(db, url, isolation), nil
}

// OpenDB wraps an already-open *sql.DB as a cppdbc.Connection, skipping the
// sql.Open/Ping steps Open performs. This is the entry point for callers
// that construct the *sql.DB themselves, such as sqlmock-backed tests.
func OpenDB(db *sql.DB, url string, isolation cppdbc.IsolationLevel) *Connection {
	return &Connection{
		db:         db,
		url:        url,
		autocommit: true,
		isolation:  isolation,
		stmts:      make(map[*Statement]struct{}),
	}
}

func (c *Connection) checkOpen() error {
	if c.closed.Load() {
		return cerrors.New(cerrors.CodeConnectionClosed, "connection is closed")
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func (c *Connection) active() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

func (c *Connection) ExecuteUpdate(ctx context.Context, sqlText string, args ...any) (uint64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.active().ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, cerrors.ClassifyDriverError(err, "execute update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// Some drivers (DDL statements) don't support RowsAffected; per
		// spec §4.4, DDL yields 0.
		return 0, nil
	}
	return uint64(affected), nil
}

func (c *Connection) ExecuteQuery(ctx context.Context, sqlText string, args ...any) (cppdbc.ResultSet, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.active().QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, cerrors.ClassifyDriverError(err, "execute query")
	}
	return newResultSet(rows, c)
}

func (c *Connection) PrepareStatement(ctx context.Context, sqlText string) (cppdbc.PreparedStatement, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	stmt, err := c.active().PrepareContext(ctx, sqlText)
	c.mu.Unlock()
	if err != nil {
		return nil, cerrors.ClassifyDriverError(err, "prepare statement")
	}

	ps := newStatement(stmt, c)
	c.stmtsMu.Lock()
	c.stmts[ps] = struct{}{}
	c.stmtsMu.Unlock()
	return ps, nil
}

func (c *Connection) SetAutoCommit(ctx context.Context, enabled bool) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if enabled == c.autocommit {
		return nil
	}
	if !enabled {
		return c.beginLocked(ctx)
	}
	// Enabling autocommit while a transaction is open commits it, matching
	// the Physical Connection contract's "autocommit restored to true" on
	// Commit/Rollback — enabling it directly commits any open work.
	if c.tx != nil {
		tx := c.tx
		c.tx = nil
		if err := tx.Commit(); err != nil {
			return cerrors.ClassifyDriverError(err, "commit on autocommit enable")
		}
	}
	c.autocommit = true
	return nil
}

func (c *Connection) GetAutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autocommit
}

func (c *Connection) beginLocked(ctx context.Context) error {
	if c.tx != nil {
		return nil
	}
	opts := &sql.TxOptions{}
	if lvl, ok := isolationToSQL[c.isolation]; ok {
		opts.Isolation = lvl
	}
	tx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return cerrors.ClassifyDriverError(err, "begin transaction")
	}
	c.tx = tx
	c.autocommit = false
	return nil
}

func (c *Connection) BeginTransaction(ctx context.Context) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx != nil {
		return false, nil
	}
	if err := c.beginLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Connection) Commit(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return cerrors.New(cerrors.CodeInvalidState, "commit called with no active transaction")
	}
	tx := c.tx
	c.tx = nil
	c.autocommit = true
	if err := tx.Commit(); err != nil {
		return cerrors.ClassifyDriverError(err, "commit transaction")
	}
	return nil
}

func (c *Connection) Rollback(ctx context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return cerrors.New(cerrors.CodeInvalidState, "rollback called with no active transaction")
	}
	tx := c.tx
	c.tx = nil
	c.autocommit = true
	if err := tx.Rollback(); err != nil {
		return cerrors.ClassifyDriverError(err, "rollback transaction")
	}
	return nil
}

func (c *Connection) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx != nil
}

func (c *Connection) SetTransactionIsolation(ctx context.Context, level cppdbc.IsolationLevel) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return cerrors.New(cerrors.CodeInvalidState, "cannot change isolation mid-transaction")
	}
	c.isolation = level
	return nil
}

func (c *Connection) GetTransactionIsolation() cppdbc.IsolationLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isolation
}

func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()
	if tx != nil {
		_ = tx.Rollback()
	}

	c.stmtsMu.Lock()
	for s := range c.stmts {
		s.invalidate()
	}
	c.stmts = nil
	c.stmtsMu.Unlock()

	return c.db.Close()
}

func (c *Connection) IsClosed() bool { return c.closed.Load() }

func (c *Connection) GetURL() string { return c.url }

func (c *Connection) forgetStatement(s *Statement) {
	c.stmtsMu.Lock()
	defer c.stmtsMu.Unlock()
	delete(c.stmts, s)
}

var _ cppdbc.Connection = (*Connection)(nil)
