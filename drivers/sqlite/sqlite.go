// Package sqlite implements the cppdbc relational Driver contract (spec
// §4.8) against SQLite via mattn/go-sqlite3, grounded on
// andrianprasetya-go-migration's pkg/database/drivers/sqlite.go DSN
// construction (database path plus query-string options/PRAGMAs).
//
// SQLite only honors SERIALIZABLE transaction isolation; AcceptedIsolationLevels
// reports that, and the pool rejects any other configured level at
// construction (spec §9's isolation-capability resolution of the Open
// Question around the source's hidden SQLite override).
package sqlite

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
	"github.com/cppdbc/cppdbc-go/drivers/sqlcommon"
)

const Scheme = "sqlite"

type Driver struct{}

func init() { cppdbc.Register(Driver{}) }

func (Driver) Scheme() string        { return Scheme }
func (Driver) Family() cppdbc.Family { return cppdbc.Relational }

func (Driver) AcceptedIsolationLevels() []cppdbc.IsolationLevel {
	return []cppdbc.IsolationLevel{cppdbc.Serializable}
}

// Connect opens a SQLite session. The authority is either ":memory:" or a
// filesystem path, per the embedded-driver authority grammar in spec §6.
func (Driver) Connect(ctx context.Context, cppdbcURL, _, _ string, opts cppdbc.Options) (cppdbc.Connection, error) {
	parsed, err := cppdbc.ParseURL(cppdbcURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != Scheme {
		return nil, cerrors.Newf(cerrors.CodeWrongDriverFamily, "sqlite driver cannot handle scheme %q", parsed.Scheme)
	}

	dsn := buildDSN(parsed.Authority, opts)
	return sqlcommon.Open(ctx, "sqlite3", dsn, cppdbcURL, cppdbc.Serializable)
}

func buildDSN(authority string, opts cppdbc.Options) string {
	dsn := authority
	if len(opts) == 0 {
		return dsn
	}
	params := make([]string, 0, len(opts))
	for k, v := range opts {
		params = append(params, fmt.Sprintf("%s=%s", k, v))
	}
	return dsn + "?" + strings.Join(params, "&")
}

var _ cppdbc.Driver = Driver{}
