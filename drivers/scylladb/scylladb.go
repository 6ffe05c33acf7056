// Package scylladb implements the columnar cppdbc Connection contract
// (spec §4.7) against ScyllaDB/Cassandra via gocql. Unlike the relational
// drivers, a columnar Connection is never handed to the pool (spec §2.2);
// callers obtain one directly through cppdbc.Connect or this package's
// Connect and use it for the lifetime of their session.
//
// Grounded on original_source's ScyllaDB test fixtures
// (test/26_*_test_scylladb_real*.cpp), which exercise CQL keyspace/table
// DDL, typed inserts (int, double, text, boolean, timestamp, uuid, blob),
// and readback through the columnar connection — the scenario this
// package is the concrete vehicle for (Testable Scenario 6).
package scylladb

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

const Scheme = "scylladb"

// Driver registers the "scylladb" columnar scheme.
type Driver struct{}

func init() { cppdbc.Register(Driver{}) }

func (Driver) Scheme() string        { return Scheme }
func (Driver) Family() cppdbc.Family { return cppdbc.Columnar }

// AcceptedIsolationLevels is empty: isolation levels are a relational
// concept the pool consults before wrapping a connection (spec §4.4); a
// columnar driver is never pooled, so this list is never inspected.
func (Driver) AcceptedIsolationLevels() []cppdbc.IsolationLevel { return nil }

func (Driver) Connect(ctx context.Context, cppdbcURL, user, password string, opts cppdbc.Options) (cppdbc.Connection, error) {
	parsed, err := cppdbc.ParseURL(cppdbcURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != Scheme {
		return nil, cerrors.Newf(cerrors.CodeWrongDriverFamily, "scylladb driver cannot handle scheme %q", parsed.Scheme)
	}

	host, keyspace := splitAuthority(parsed.Authority)
	cluster := gocql.NewCluster(host)
	cluster.Keyspace = keyspace
	cluster.Timeout = 10 * time.Second
	if user != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{Username: user, Password: password}
	}
	if v, ok := opts["consistency"]; ok {
		if c, ok := parseConsistency(v); ok {
			cluster.Consistency = c
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeConnectFailed, "create scylladb session")
	}

	return &Connection{session: session, url: cppdbcURL, autocommit: true}, nil
}

func splitAuthority(authority string) (host, keyspace string) {
	if idx := strings.Index(authority, "/"); idx >= 0 {
		return authority[:idx], authority[idx+1:]
	}
	return authority, ""
}

func parseConsistency(v string) (gocql.Consistency, bool) {
	switch strings.ToUpper(v) {
	case "ANY":
		return gocql.Any, true
	case "ONE":
		return gocql.One, true
	case "QUORUM":
		return gocql.Quorum, true
	case "ALL":
		return gocql.All, true
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum, true
	default:
		return 0, false
	}
}

// Connection is a single CQL session implementing cppdbc.Connection (the
// relational shape) plus the columnar UUID extension. Transactions are a
// no-op: CQL has no multi-statement ACID transaction concept, so
// Begin/Commit/Rollback just track the autocommit-style flag for callers
// that share code paths with relational backends.
type Connection struct {
	session *gocql.Session
	url     string
	closed  atomic.Bool

	mu         sync.Mutex
	autocommit bool
	inTx       bool
}

func (c *Connection) checkOpen() error {
	if c.closed.Load() {
		return cerrors.New(cerrors.CodeConnectionClosed, "scylladb connection is closed")
	}
	return nil
}

func (c *Connection) ExecuteUpdate(ctx context.Context, cql string, args ...any) (uint64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}
	if err := c.session.Query(cql, args...).WithContext(ctx).Exec(); err != nil {
		return 0, cerrors.Wrap(err, cerrors.CodeDriverError, "execute cql update")
	}
	return 0, nil
}

func (c *Connection) ExecuteQuery(ctx context.Context, cql string, args ...any) (cppdbc.ResultSet, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	iter := c.session.Query(cql, args...).WithContext(ctx).Iter()
	return newResultSet(iter), nil
}

func (c *Connection) PrepareStatement(ctx context.Context, cql string) (cppdbc.PreparedStatement, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return &Statement{conn: c, cql: cql, args: make(map[int]any)}, nil
}

func (c *Connection) SetAutoCommit(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autocommit = enabled
	return nil
}

func (c *Connection) GetAutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autocommit
}

func (c *Connection) BeginTransaction(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inTx {
		return false, nil
	}
	c.inTx = true
	c.autocommit = false
	return true, nil
}

func (c *Connection) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	c.autocommit = true
	return nil
}

func (c *Connection) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = false
	c.autocommit = true
	return nil
}

func (c *Connection) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inTx
}

// SetTransactionIsolation is a no-op for CQL; GetTransactionIsolation
// always reports Serializable, the closest CQL analogue (lightweight
// transactions use a Paxos-backed linearizable consistency).
func (c *Connection) SetTransactionIsolation(context.Context, cppdbc.IsolationLevel) error {
	return nil
}

func (c *Connection) GetTransactionIsolation() cppdbc.IsolationLevel {
	return cppdbc.Serializable
}

func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.session.Close()
	return nil
}

func (c *Connection) IsClosed() bool { return c.closed.Load() }
func (c *Connection) GetURL() string { return c.url }

// Statement implements cppdbc.ColumnarPreparedStatement: CQL bind markers
// are positional "?" like the relational contract, so SetX buffers args by
// index and flattens them into a slice at execute time, the same way
// sqlcommon.Statement does.
type Statement struct {
	conn *Connection
	cql  string

	mu   sync.Mutex
	args map[int]any
	max  int
}

func (s *Statement) set(index int, v any) error {
	if index < 1 {
		return cerrors.Newf(cerrors.CodeInvalidParameter, "placeholder index %d is not 1-based", index)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args[index] = v
	if index > s.max {
		s.max = index
	}
	return nil
}

func (s *Statement) SetInt(index int, v int32) error         { return s.set(index, v) }
func (s *Statement) SetLong(index int, v int64) error          { return s.set(index, v) }
func (s *Statement) SetDouble(index int, v float64) error      { return s.set(index, v) }
func (s *Statement) SetString(index int, v string) error       { return s.set(index, v) }
func (s *Statement) SetBool(index int, v bool) error           { return s.set(index, v) }
func (s *Statement) SetDate(index int, v time.Time) error      { return s.set(index, v) }
func (s *Statement) SetTimestamp(index int, v time.Time) error { return s.set(index, v) }
func (s *Statement) SetBytes(index int, v []byte) error        { return s.set(index, v) }
func (s *Statement) SetBlobObject(index int, v []byte) error   { return s.set(index, v) }
func (s *Statement) SetNull(index int, _ cppdbc.SQLType) error { return s.set(index, nil) }

func (s *Statement) SetBlobStream(index int, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return cerrors.Wrap(err, cerrors.CodeInvalidParameter, "read blob stream")
	}
	return s.set(index, data)
}

func (s *Statement) SetUUID(index int, v [16]byte) error {
	id, err := uuid.FromBytes(v[:])
	if err != nil {
		return cerrors.Wrap(err, cerrors.CodeInvalidParameter, "invalid uuid bytes")
	}
	return s.set(index, id)
}

func (s *Statement) boundArgs() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, s.max)
	for i := 1; i <= s.max; i++ {
		out[i-1] = s.args[i]
	}
	return out
}

func (s *Statement) ExecuteQuery(ctx context.Context) (cppdbc.ResultSet, error) {
	return s.conn.ExecuteQuery(ctx, s.cql, s.boundArgs()...)
}

func (s *Statement) ExecuteUpdate(ctx context.Context) (uint64, error) {
	return s.conn.ExecuteUpdate(ctx, s.cql, s.boundArgs()...)
}

func (s *Statement) Execute(ctx context.Context) (bool, error) {
	rs, err := s.ExecuteQuery(ctx)
	if err != nil {
		return false, err
	}
	return true, rs.Close()
}

func (s *Statement) Close() error { return nil }

var _ cppdbc.ColumnarPreparedStatement = (*Statement)(nil)
var _ cppdbc.Connection = (*Connection)(nil)
var _ cppdbc.Driver = Driver{}
