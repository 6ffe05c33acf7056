package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// fakeDriver is an in-memory stand-in for a relational driver, used so the
// pool's accounting and lifecycle logic can be exercised without a real
// backend. It counts connections opened so tests can assert on churn.
type fakeDriver struct {
	mu            sync.Mutex
	opened        int
	failNextOpens int
	failValidate  atomic.Bool
}

func (d *fakeDriver) Scheme() string        { return "fakedb" }
func (d *fakeDriver) Family() cppdbc.Family { return cppdbc.Relational }

func (d *fakeDriver) AcceptedIsolationLevels() []cppdbc.IsolationLevel {
	return []cppdbc.IsolationLevel{
		cppdbc.ReadUncommitted, cppdbc.ReadCommitted, cppdbc.RepeatableRead, cppdbc.Serializable,
	}
}

func (d *fakeDriver) Connect(_ context.Context, url, _, _ string, _ cppdbc.Options) (cppdbc.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNextOpens > 0 {
		d.failNextOpens--
		return nil, cerrors.New(cerrors.CodeConnectFailed, "fake connect failure")
	}

	d.opened++
	return &fakeConn{url: url, driver: d, autocommit: true, isolation: cppdbc.ReadCommitted}, nil
}

func (d *fakeDriver) openedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// fakeConn is a minimal cppdbc.Connection that tracks its own state well
// enough for pool tests: closed flag, transaction flag, and a validation
// hook the driver can flip to simulate a dead session.
type fakeConn struct {
	url        string
	driver     *fakeDriver
	mu         sync.Mutex
	closed     bool
	autocommit bool
	inTx       bool
	isolation  cppdbc.IsolationLevel
	invalid    bool
}

func (c *fakeConn) ExecuteUpdate(_ context.Context, _ string, _ ...any) (uint64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	return 1, nil
}

func (c *fakeConn) ExecuteQuery(_ context.Context, _ string, _ ...any) (cppdbc.ResultSet, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalid || c.driver.failValidate.Load() {
		return nil, cerrors.New(cerrors.CodeValidationFailed, "fake connection is invalid")
	}
	return &emptyResultSet{}, nil
}

func (c *fakeConn) PrepareStatement(context.Context, string) (cppdbc.PreparedStatement, error) {
	return nil, cerrors.New(cerrors.CodeDriverError, "not implemented in fake")
}

func (c *fakeConn) SetAutoCommit(_ context.Context, enabled bool) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autocommit = enabled
	return nil
}

func (c *fakeConn) GetAutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autocommit
}

func (c *fakeConn) BeginTransaction(_ context.Context) (bool, error) {
	if err := c.checkOpen(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inTx {
		return false, nil
	}
	c.inTx = true
	c.autocommit = false
	return true, nil
}

func (c *fakeConn) Commit(_ context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	c.autocommit = true
	return nil
}

func (c *fakeConn) Rollback(_ context.Context) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	c.autocommit = true
	return nil
}

func (c *fakeConn) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTx
}

func (c *fakeConn) SetTransactionIsolation(_ context.Context, level cppdbc.IsolationLevel) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isolation = level
	return nil
}

func (c *fakeConn) GetTransactionIsolation() cppdbc.IsolationLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isolation
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) GetURL() string { return c.url }

func (c *fakeConn) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cerrors.New(cerrors.CodeConnectionClosed, "fake connection is closed")
	}
	return nil
}

func (c *fakeConn) markInvalid() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalid = true
}

type emptyResultSet struct {
	yielded  bool
	exhausted bool
	row      int
}

func (r *emptyResultSet) Next() bool {
	if r.yielded {
		r.exhausted = true
		r.row = 0
		return false
	}
	r.yielded = true
	r.row = 1
	return true
}
func (r *emptyResultSet) Err() error            { return nil }
func (r *emptyResultSet) Close() error          { return nil }
func (r *emptyResultSet) ColumnNames() []string { return nil }
func (r *emptyResultSet) ColumnCount() int      { return 0 }
func (r *emptyResultSet) IsBeforeFirst() bool   { return !r.yielded }
func (r *emptyResultSet) IsAfterLast() bool     { return r.exhausted }
func (r *emptyResultSet) GetRow() int           { return r.row }

func (r *emptyResultSet) GetInt(int) (int32, error)              { return 1, nil }
func (r *emptyResultSet) GetLong(int) (int64, error)              { return 1, nil }
func (r *emptyResultSet) GetDouble(int) (float64, error)          { return 1, nil }
func (r *emptyResultSet) GetString(int) (string, error)           { return "", nil }
func (r *emptyResultSet) GetBool(int) (bool, error)                { return true, nil }
func (r *emptyResultSet) GetDate(int) (time.Time, error)           { return time.Time{}, nil }
func (r *emptyResultSet) GetTimestamp(int) (time.Time, error)      { return time.Time{}, nil }
func (r *emptyResultSet) GetBytes(int) ([]byte, error)             { return nil, nil }
func (r *emptyResultSet) IsNull(int) (bool, error)                 { return false, nil }

func (r *emptyResultSet) GetIntByName(string) (int32, error)         { return 1, nil }
func (r *emptyResultSet) GetLongByName(string) (int64, error)        { return 1, nil }
func (r *emptyResultSet) GetDoubleByName(string) (float64, error)    { return 1, nil }
func (r *emptyResultSet) GetStringByName(string) (string, error)     { return "", nil }
func (r *emptyResultSet) GetBoolByName(string) (bool, error)         { return true, nil }
func (r *emptyResultSet) GetDateByName(string) (time.Time, error)    { return time.Time{}, nil }
func (r *emptyResultSet) GetTimestampByName(string) (time.Time, error) { return time.Time{}, nil }
func (r *emptyResultSet) GetBytesByName(string) ([]byte, error)      { return nil, nil }
func (r *emptyResultSet) IsNullByName(string) (bool, error)          { return false, nil }

func newTestPool(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, cfg PoolConfig) (*ConnectionPool, *fakeDriver) {
	t.Helper()
	driver := &fakeDriver{}
	registry := cppdbc.NewDriverRegistry()
	registry.Register(driver)

	p, err := New(context.Background(), registry, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, driver
}
