package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// PooledConnection is the handle a caller borrows from a ConnectionPool
// (§4.2). It delegates every data operation to the wrapped physical
// connection, but intercepts Close: rather than terminating the session it
// returns the connection to its owning pool.
//
// Ownership back to the pool is expressed the way Go can express it: a
// plain unexported back-pointer plus a separate atomic liveness cell shared
// with every handle the pool has issued. There is no weak-pointer type in
// Go to upgrade; poolAlive being false is what "the weak reference failed
// to upgrade" means here.
type PooledConnection struct {
	conn cppdbc.Connection

	pool      *ConnectionPool
	poolAlive *atomic.Bool

	createdAt time.Time
	lastUsed  atomic.Int64 // unix nanos

	active atomic.Bool
	closed atomic.Bool

	isolation cppdbc.IsolationLevel
}

func newPooledConnection(conn cppdbc.Connection, p *ConnectionPool, isolation cppdbc.IsolationLevel) *PooledConnection {
	pc := &PooledConnection{
		conn:      conn,
		pool:      p,
		poolAlive: p.alive,
		createdAt: time.Now(),
		isolation: isolation,
	}
	pc.lastUsed.Store(pc.createdAt.UnixNano())
	return pc
}

func (pc *PooledConnection) touch() {
	pc.lastUsed.Store(time.Now().UnixNano())
}

func (pc *PooledConnection) lastUsedAt() time.Time {
	return time.Unix(0, pc.lastUsed.Load())
}

func (pc *PooledConnection) checkOpen() error {
	if pc.closed.Load() {
		return cerrors.New(cerrors.CodeConnectionClosed, "pooled connection is closed")
	}
	return nil
}

// ExecuteUpdate implements cppdbc.Connection.
func (pc *PooledConnection) ExecuteUpdate(ctx context.Context, sql string, args ...any) (uint64, error) {
	if err := pc.checkOpen(); err != nil {
		return 0, err
	}
	pc.touch()
	return pc.conn.ExecuteUpdate(ctx, sql, args...)
}

// ExecuteQuery implements cppdbc.Connection.
func (pc *PooledConnection) ExecuteQuery(ctx context.Context, sql string, args ...any) (cppdbc.ResultSet, error) {
	if err := pc.checkOpen(); err != nil {
		return nil, err
	}
	pc.touch()
	return pc.conn.ExecuteQuery(ctx, sql, args...)
}

// PrepareStatement implements cppdbc.Connection.
func (pc *PooledConnection) PrepareStatement(ctx context.Context, sql string) (cppdbc.PreparedStatement, error) {
	if err := pc.checkOpen(); err != nil {
		return nil, err
	}
	pc.touch()
	return pc.conn.PrepareStatement(ctx, sql)
}

// SetAutoCommit implements cppdbc.Connection.
func (pc *PooledConnection) SetAutoCommit(ctx context.Context, enabled bool) error {
	if err := pc.checkOpen(); err != nil {
		return err
	}
	pc.touch()
	return pc.conn.SetAutoCommit(ctx, enabled)
}

// GetAutoCommit implements cppdbc.Connection.
func (pc *PooledConnection) GetAutoCommit() bool {
	return pc.conn.GetAutoCommit()
}

// BeginTransaction implements cppdbc.Connection.
func (pc *PooledConnection) BeginTransaction(ctx context.Context) (bool, error) {
	if err := pc.checkOpen(); err != nil {
		return false, err
	}
	pc.touch()
	return pc.conn.BeginTransaction(ctx)
}

// Commit implements cppdbc.Connection.
func (pc *PooledConnection) Commit(ctx context.Context) error {
	if err := pc.checkOpen(); err != nil {
		return err
	}
	pc.touch()
	return pc.conn.Commit(ctx)
}

// Rollback implements cppdbc.Connection.
func (pc *PooledConnection) Rollback(ctx context.Context) error {
	if err := pc.checkOpen(); err != nil {
		return err
	}
	pc.touch()
	return pc.conn.Rollback(ctx)
}

// TransactionActive implements cppdbc.Connection.
func (pc *PooledConnection) TransactionActive() bool {
	return pc.conn.TransactionActive()
}

// SetTransactionIsolation implements cppdbc.Connection.
func (pc *PooledConnection) SetTransactionIsolation(ctx context.Context, level cppdbc.IsolationLevel) error {
	if err := pc.checkOpen(); err != nil {
		return err
	}
	pc.touch()
	if err := pc.conn.SetTransactionIsolation(ctx, level); err != nil {
		return err
	}
	pc.isolation = level
	return nil
}

// GetTransactionIsolation implements cppdbc.Connection.
func (pc *PooledConnection) GetTransactionIsolation() cppdbc.IsolationLevel {
	return pc.conn.GetTransactionIsolation()
}

// IsClosed reports whether this handle has been returned/closed.
func (pc *PooledConnection) IsClosed() bool {
	return pc.closed.Load()
}

// GetURL implements cppdbc.Connection.
func (pc *PooledConnection) GetURL() string {
	return pc.conn.GetURL()
}

// Close runs the return-to-pool protocol (§4.2):
//  1. Flip closed false→true; if already true, this is a no-op.
//  2. If the pool is no longer alive, close the physical connection directly.
//  3. Otherwise hand the connection back via pool.returnConnection.
//  4. Any failure along the way falls back to closing the physical connection.
func (pc *PooledConnection) Close() error {
	if !pc.closed.CompareAndSwap(false, true) {
		return nil
	}

	if !pc.poolAlive.Load() {
		return pc.conn.Close()
	}

	p := pc.pool
	if p == nil {
		return pc.conn.Close()
	}

	if err := p.returnConnection(pc); err != nil {
		return pc.conn.Close()
	}
	return nil
}

// reactivate clears the closed flag when the pool re-admits this handle to
// a fresh borrow, and marks it checked out.
func (pc *PooledConnection) reactivate() {
	pc.closed.Store(false)
	pc.active.Store(true)
	pc.touch()
}

// markIdle clears the active flag when the handle re-enters the idle queue.
func (pc *PooledConnection) markIdle() {
	pc.active.Store(false)
}

// IsActive reports whether this handle is currently checked out.
func (pc *PooledConnection) IsActive() bool {
	return pc.active.Load()
}

var _ cppdbc.Connection = (*PooledConnection)(nil)
