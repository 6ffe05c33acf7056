package cppdbc

import (
	"context"
	"io"
	"time"
)

// SQLType tags the declared type of an explicit NULL, since Go's nil
// carries no type information of its own.
type SQLType int

const (
	TypeInt SQLType = iota
	TypeLong
	TypeDouble
	TypeBool
	TypeString
	TypeDate
	TypeTimestamp
	TypeTime
	TypeBytes
	TypeUUID
)

// PreparedStatement is a compiled statement with 1-based positional
// placeholders. A statement may be executed more than once; it is
// invalidated when its parent Connection closes (§9 statement lifetime
// resolution).
type PreparedStatement interface {
	SetInt(index int, v int32) error
	SetLong(index int, v int64) error
	SetDouble(index int, v float64) error
	SetString(index int, v string) error
	SetBool(index int, v bool) error
	SetNull(index int, sqlType SQLType) error
	SetDate(index int, v time.Time) error
	SetTimestamp(index int, v time.Time) error
	SetBytes(index int, v []byte) error
	SetBlobStream(index int, r io.Reader) error
	SetBlobObject(index int, v []byte) error

	// ExecuteQuery runs the statement as a query.
	ExecuteQuery(ctx context.Context) (ResultSet, error)

	// ExecuteUpdate runs the statement as an update, returning rows affected.
	ExecuteUpdate(ctx context.Context) (uint64, error)

	// Execute runs the statement and reports whether it produced a result set.
	Execute(ctx context.Context) (bool, error)

	// Close releases the statement. Idempotent.
	Close() error
}

// ColumnarPreparedStatement extends PreparedStatement with the UUID setter
// columnar (CQL-style) drivers expose in addition to the relational set.
type ColumnarPreparedStatement interface {
	PreparedStatement
	SetUUID(index int, v [16]byte) error
}
