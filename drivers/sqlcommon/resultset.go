package sqlcommon

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// ResultSet is a lazy, forward-only cursor over *sql.Rows implementing the
// cppdbc.ResultSet contract (spec §4.5): Next must be called before the
// first row is visible, NULL reads return the type's zero value, and
// IsNull is the authoritative check.
type ResultSet struct {
	rows    *sql.Rows
	parent  *Connection
	cols    []string
	colIdx  map[string]int
	current []any
	row     int
	done    bool
	closed  bool
	err     error
}

func newResultSet(rows *sql.Rows, parent *Connection) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, cerrors.Wrap(err, cerrors.CodeDriverError, "read result columns")
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c] = i
	}
	return &ResultSet{rows: rows, parent: parent, cols: cols, colIdx: idx}, nil
}

func (r *ResultSet) Next() bool {
	if r.closed || r.done {
		return false
	}
	if !r.rows.Next() {
		r.done = true
		r.row = 0
		r.err = r.rows.Err()
		return false
	}

	dest := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = cerrors.Wrap(err, cerrors.CodeDriverError, "scan row")
		r.done = true
		return false
	}
	r.current = dest
	r.row++
	return true
}

func (r *ResultSet) Err() error { return r.err }

func (r *ResultSet) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rows.Close()
}

func (r *ResultSet) IsBeforeFirst() bool { return r.row == 0 && !r.done }
func (r *ResultSet) IsAfterLast() bool   { return r.done }
func (r *ResultSet) GetRow() int         { return r.row }

func (r *ResultSet) ColumnNames() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

func (r *ResultSet) ColumnCount() int { return len(r.cols) }

func (r *ResultSet) checkPositioned(index int) error {
	if r.closed {
		return cerrors.New(cerrors.CodeConnectionClosed, "result set is closed")
	}
	if r.parent != nil && r.parent.IsClosed() {
		return cerrors.New(cerrors.CodeConnectionClosed, "parent connection is closed")
	}
	if r.current == nil {
		return cerrors.New(cerrors.CodeInvalidState, "no current row; call Next first")
	}
	if index < 1 || index > len(r.cols) {
		return cerrors.Newf(cerrors.CodeInvalidParameter, "column index %d out of range", index)
	}
	return nil
}

func (r *ResultSet) value(index int) (any, error) {
	if err := r.checkPositioned(index); err != nil {
		return nil, err
	}
	return r.current[index-1], nil
}

func (r *ResultSet) IsNull(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (r *ResultSet) GetInt(index int) (int32, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return 0, err
	}
	n, err := toInt64(v)
	return int32(n), err
}

func (r *ResultSet) GetLong(index int) (int64, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return 0, err
	}
	return toInt64(v)
}

func (r *ResultSet) GetDouble(index int) (float64, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return 0, err
	}
	return toFloat64(v)
}

func (r *ResultSet) GetString(index int) (string, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return "", err
	}
	return toString(v), nil
}

func (r *ResultSet) GetBool(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return false, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	default:
		return false, cerrors.Newf(cerrors.CodeInvalidParameter, "column %d is not a bool: %T", index, v)
	}
}

func (r *ResultSet) GetDate(index int) (time.Time, error) {
	return r.GetTimestamp(index)
}

func (r *ResultSet) GetTimestamp(index int) (time.Time, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		parsed, perr := time.Parse(time.RFC3339, string(t))
		if perr != nil {
			return time.Time{}, cerrors.Wrap(perr, cerrors.CodeInvalidParameter, "parse timestamp")
		}
		return parsed, nil
	default:
		return time.Time{}, cerrors.Newf(cerrors.CodeInvalidParameter, "column %d is not a timestamp: %T", index, v)
	}
}

func (r *ResultSet) GetBytes(index int) ([]byte, error) {
	v, err := r.value(index)
	if err != nil || v == nil {
		return nil, err
	}
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, cerrors.Newf(cerrors.CodeInvalidParameter, "column %d is not bytes: %T", index, v)
	}
}

func (r *ResultSet) byName(name string) (int, error) {
	idx, ok := r.colIdx[name]
	if !ok {
		return 0, cerrors.Newf(cerrors.CodeInvalidParameter, "unknown column %q", name)
	}
	return idx + 1, nil
}

func (r *ResultSet) GetIntByName(name string) (int32, error) {
	i, err := r.byName(name)
	if err != nil {
		return 0, err
	}
	return r.GetInt(i)
}
func (r *ResultSet) GetLongByName(name string) (int64, error) {
	i, err := r.byName(name)
	if err != nil {
		return 0, err
	}
	return r.GetLong(i)
}
func (r *ResultSet) GetDoubleByName(name string) (float64, error) {
	i, err := r.byName(name)
	if err != nil {
		return 0, err
	}
	return r.GetDouble(i)
}
func (r *ResultSet) GetStringByName(name string) (string, error) {
	i, err := r.byName(name)
	if err != nil {
		return "", err
	}
	return r.GetString(i)
}
func (r *ResultSet) GetBoolByName(name string) (bool, error) {
	i, err := r.byName(name)
	if err != nil {
		return false, err
	}
	return r.GetBool(i)
}
func (r *ResultSet) GetDateByName(name string) (time.Time, error) {
	i, err := r.byName(name)
	if err != nil {
		return time.Time{}, err
	}
	return r.GetDate(i)
}
func (r *ResultSet) GetTimestampByName(name string) (time.Time, error) {
	i, err := r.byName(name)
	if err != nil {
		return time.Time{}, err
	}
	return r.GetTimestamp(i)
}
func (r *ResultSet) GetBytesByName(name string) ([]byte, error) {
	i, err := r.byName(name)
	if err != nil {
		return nil, err
	}
	return r.GetBytes(i)
}
func (r *ResultSet) IsNullByName(name string) (bool, error) {
	i, err := r.byName(name)
	if err != nil {
		return false, err
	}
	return r.IsNull(i)
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case []byte:
		var n int64
		_, err := fmt.Sscanf(string(t), "%d", &n)
		return n, err
	default:
		return 0, cerrors.Newf(cerrors.CodeInvalidParameter, "cannot convert %T to int", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case []byte:
		var f float64
		_, err := fmt.Sscanf(string(t), "%g", &f)
		return f, err
	default:
		return 0, cerrors.Newf(cerrors.CodeInvalidParameter, "cannot convert %T to double", v)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

var _ cppdbc.ResultSet = (*ResultSet)(nil)
