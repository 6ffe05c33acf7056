package sqlcommon

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// Statement implements cppdbc.PreparedStatement over a *sql.Stmt. Since
// database/sql has no incremental "bind then execute" API, SetX calls
// buffer positional args in a map keyed by index, which Execute/ExecuteQuery/
// ExecuteUpdate flattens into a slice and hands to the underlying *sql.Stmt
// in one call — this
// buffering is the one piece of this package with no database/sql
// analogue, built directly from the PreparedStatement contract in spec §4.5.
type Statement struct {
	stmt   *sql.Stmt
	parent *Connection
	closed atomic.Bool

	mu   sync.Mutex
	args map[int]any
	max  int
}

func newStatement(stmt *sql.Stmt, parent *Connection) *Statement {
	return &Statement{stmt: stmt, parent: parent, args: make(map[int]any)}
}

func (s *Statement) checkOpen() error {
	if s.closed.Load() {
		return cerrors.New(cerrors.CodeConnectionClosed, "statement is closed")
	}
	return nil
}

func (s *Statement) set(index int, v any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
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

func (s *Statement) SetInt(index int, v int32) error       { return s.set(index, v) }
func (s *Statement) SetLong(index int, v int64) error       { return s.set(index, v) }
func (s *Statement) SetDouble(index int, v float64) error   { return s.set(index, v) }
func (s *Statement) SetString(index int, v string) error    { return s.set(index, v) }
func (s *Statement) SetBool(index int, v bool) error        { return s.set(index, v) }
func (s *Statement) SetDate(index int, v time.Time) error   { return s.set(index, v) }
func (s *Statement) SetTimestamp(index int, v time.Time) error { return s.set(index, v) }
func (s *Statement) SetBytes(index int, v []byte) error     { return s.set(index, v) }
func (s *Statement) SetBlobObject(index int, v []byte) error { return s.set(index, v) }

func (s *Statement) SetNull(index int, sqlType cppdbc.SQLType) error {
	return s.set(index, nil)
}

func (s *Statement) SetBlobStream(index int, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return cerrors.Wrap(err, cerrors.CodeInvalidParameter, "read blob stream")
	}
	return s.set(index, data)
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
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := s.stmt.QueryContext(ctx, s.boundArgs()...)
	if err != nil {
		return nil, cerrors.ClassifyDriverError(err, "execute prepared query")
	}
	return newResultSet(rows, s.parent)
}

func (s *Statement) ExecuteUpdate(ctx context.Context) (uint64, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	res, err := s.stmt.ExecContext(ctx, s.boundArgs()...)
	if err != nil {
		return 0, cerrors.ClassifyDriverError(err, "execute prepared update")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return uint64(affected), nil
}

// Execute runs the statement and reports whether it produced rows. Lacking
// driver-level introspection, database/sql statements are treated as
// queries whenever they succeed with an open *sql.Rows; callers that know
// whether their SQL is a SELECT should prefer ExecuteQuery/ExecuteUpdate.
func (s *Statement) Execute(ctx context.Context) (bool, error) {
	rs, err := s.ExecuteQuery(ctx)
	if err != nil {
		return false, err
	}
	return true, rs.Close()
}

func (s *Statement) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.parent.forgetStatement(s)
	return s.stmt.Close()
}

func (s *Statement) invalidate() {
	s.closed.Store(true)
}

var _ cppdbc.PreparedStatement = (*Statement)(nil)
