package scylladb

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

// ResultSet wraps a gocql.Iter, implementing cppdbc.ColumnarResultSet.
type ResultSet struct {
	iter    *gocql.Iter
	cols    []gocql.ColumnInfo
	colIdx  map[string]int
	current map[string]any
	row     int
	done    bool
}

func newResultSet(iter *gocql.Iter) *ResultSet {
	cols := iter.Columns()
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.Name] = i
	}
	return &ResultSet{iter: iter, cols: cols, colIdx: idx}
}

func (r *ResultSet) Next() bool {
	if r.done {
		return false
	}
	row := make(map[string]any)
	if !r.iter.MapScan(row) {
		r.done = true
		r.row = 0
		r.current = nil
		return false
	}
	r.current = row
	r.row++
	return true
}

func (r *ResultSet) Err() error { return r.iter.Close() }

func (r *ResultSet) Close() error { return r.iter.Close() }

func (r *ResultSet) IsBeforeFirst() bool { return r.row == 0 && !r.done }
func (r *ResultSet) IsAfterLast() bool   { return r.done }
func (r *ResultSet) GetRow() int         { return r.row }

func (r *ResultSet) ColumnNames() []string {
	out := make([]string, len(r.cols))
	for i, c := range r.cols {
		out[i] = c.Name
	}
	return out
}

func (r *ResultSet) ColumnCount() int { return len(r.cols) }

func (r *ResultSet) nameFor(index int) (string, error) {
	if index < 1 || index > len(r.cols) {
		return "", cerrors.Newf(cerrors.CodeInvalidParameter, "column index %d out of range", index)
	}
	return r.cols[index-1].Name, nil
}

func (r *ResultSet) valueByName(name string) (any, error) {
	if r.current == nil {
		return nil, cerrors.New(cerrors.CodeInvalidState, "no current row; call Next first")
	}
	if _, ok := r.colIdx[name]; !ok {
		return nil, cerrors.Newf(cerrors.CodeInvalidParameter, "unknown column %q", name)
	}
	return r.current[name], nil
}

func (r *ResultSet) IsNull(index int) (bool, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return false, err
	}
	return r.IsNullByName(name)
}

func (r *ResultSet) IsNullByName(name string) (bool, error) {
	v, err := r.valueByName(name)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (r *ResultSet) GetInt(index int) (int32, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return 0, err
	}
	return r.GetIntByName(name)
}
func (r *ResultSet) GetIntByName(name string) (int32, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return 0, err
	}
	n, _ := v.(int)
	return int32(n), nil
}

func (r *ResultSet) GetLong(index int) (int64, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return 0, err
	}
	return r.GetLongByName(name)
}
func (r *ResultSet) GetLongByName(name string) (int64, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return 0, err
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	default:
		return 0, cerrors.Newf(cerrors.CodeInvalidParameter, "column %q is not a long: %T", name, v)
	}
}

func (r *ResultSet) GetDouble(index int) (float64, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return 0, err
	}
	return r.GetDoubleByName(name)
}
func (r *ResultSet) GetDoubleByName(name string) (float64, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return 0, err
	}
	f, _ := v.(float64)
	return f, nil
}

func (r *ResultSet) GetString(index int) (string, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return "", err
	}
	return r.GetStringByName(name)
}
func (r *ResultSet) GetStringByName(name string) (string, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

func (r *ResultSet) GetBool(index int) (bool, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return false, err
	}
	return r.GetBoolByName(name)
}
func (r *ResultSet) GetBoolByName(name string) (bool, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (r *ResultSet) GetDate(index int) (time.Time, error) { return r.GetTimestamp(index) }
func (r *ResultSet) GetDateByName(name string) (time.Time, error) {
	return r.GetTimestampByName(name)
}

func (r *ResultSet) GetTimestamp(index int) (time.Time, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return time.Time{}, err
	}
	return r.GetTimestampByName(name)
}
func (r *ResultSet) GetTimestampByName(name string) (time.Time, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return time.Time{}, err
	}
	t, _ := v.(time.Time)
	return t, nil
}

func (r *ResultSet) GetBytes(index int) ([]byte, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return nil, err
	}
	return r.GetBytesByName(name)
}
func (r *ResultSet) GetBytesByName(name string) ([]byte, error) {
	v, err := r.valueByName(name)
	if err != nil || v == nil {
		return nil, err
	}
	b, _ := v.([]byte)
	return b, nil
}

// GetUUID and GetUUIDByName are the columnar-only accessors (spec §4.5).
func (r *ResultSet) GetUUID(index int) ([16]byte, error) {
	name, err := r.nameFor(index)
	if err != nil {
		return [16]byte{}, err
	}
	return r.GetUUIDByName(name)
}

func (r *ResultSet) GetUUIDByName(name string) ([16]byte, error) {
	v, err := r.valueByName(name)
	if err != nil {
		return [16]byte{}, err
	}
	if v == nil {
		return [16]byte{}, nil
	}
	id, ok := v.(gocql.UUID)
	if !ok {
		return [16]byte{}, cerrors.Newf(cerrors.CodeInvalidParameter, "column %q is not a uuid: %T", name, v)
	}
	parsed, err := uuid.Parse(id.String())
	if err != nil {
		return [16]byte{}, cerrors.Wrap(err, cerrors.CodeDriverError, "parse uuid")
	}
	return [16]byte(parsed), nil
}

var _ cppdbc.ColumnarResultSet = (*ResultSet)(nil)
