package cppdbc

import "time"

// ResultSet iterates the rows produced by a query. Next must be called
// before the first row is visible; column access after Close or before
// the first Next returns errors.CodeConnectionClosed / a usage error from
// the concrete driver.
type ResultSet interface {
	// Next advances to the next row, returning false when rows are
	// exhausted or an error occurred (check Err).
	Next() bool

	// Err returns the first error encountered while iterating, if any.
	Err() error

	// Close releases the underlying row handle. Idempotent.
	Close() error

	// IsBeforeFirst reports whether the cursor is positioned before the
	// first row, i.e. Next has not yet been called.
	IsBeforeFirst() bool

	// IsAfterLast reports whether the cursor has advanced past the last
	// row, i.e. the most recent Next call returned false.
	IsAfterLast() bool

	// GetRow returns the 1-based row number of the current row, or 0 if
	// positioned before the first row or after the last.
	GetRow() int

	// ColumnNames lists the result columns in select order.
	ColumnNames() []string

	// ColumnCount returns the number of columns in the result set.
	ColumnCount() int

	GetInt(index int) (int32, error)
	GetLong(index int) (int64, error)
	GetDouble(index int) (float64, error)
	GetString(index int) (string, error)
	GetBool(index int) (bool, error)
	GetDate(index int) (time.Time, error)
	GetTimestamp(index int) (time.Time, error)
	GetBytes(index int) ([]byte, error)
	IsNull(index int) (bool, error)

	GetIntByName(name string) (int32, error)
	GetLongByName(name string) (int64, error)
	GetDoubleByName(name string) (float64, error)
	GetStringByName(name string) (string, error)
	GetBoolByName(name string) (bool, error)
	GetDateByName(name string) (time.Time, error)
	GetTimestampByName(name string) (time.Time, error)
	GetBytesByName(name string) ([]byte, error)
	IsNullByName(name string) (bool, error)
}

// ColumnarResultSet extends ResultSet with the UUID accessors columnar
// (CQL-style) backends expose alongside the relational scalar set.
type ColumnarResultSet interface {
	ResultSet
	GetUUID(index int) ([16]byte, error)
	GetUUIDByName(name string) ([16]byte, error)
}
