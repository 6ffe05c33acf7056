// Package postgres implements the cppdbc relational Driver contract
// against PostgreSQL via pgx's database/sql-compatible stdlib driver,
// opening a single physical session per Connect call.
package postgres

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
	"github.com/cppdbc/cppdbc-go/drivers/sqlcommon"
)

const Scheme = "postgresql"

// Driver registers the "postgresql" scheme. PostgreSQL accepts every
// isolation level the pool understands.
type Driver struct{}

func init() { cppdbc.Register(Driver{}) }

func (Driver) Scheme() string        { return Scheme }
func (Driver) Family() cppdbc.Family { return cppdbc.Relational }

func (Driver) AcceptedIsolationLevels() []cppdbc.IsolationLevel {
	return []cppdbc.IsolationLevel{
		cppdbc.ReadUncommitted, cppdbc.ReadCommitted, cppdbc.RepeatableRead, cppdbc.Serializable,
	}
}

func (Driver) Connect(ctx context.Context, cppdbcURL, user, password string, opts cppdbc.Options) (cppdbc.Connection, error) {
	parsed, err := cppdbc.ParseURL(cppdbcURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != Scheme {
		return nil, cerrors.Newf(cerrors.CodeWrongDriverFamily, "postgres driver cannot handle scheme %q", parsed.Scheme)
	}

	dsn := buildDSN(parsed.Authority, user, password, opts)
	return sqlcommon.Open(ctx, "pgx", dsn, cppdbcURL, cppdbc.ReadCommitted)
}

// buildDSN turns a "<host>:<port>/<database>" authority plus credentials
// and driver options (sslmode, connect_timeout, application_name, ...)
// into a libpq-style key=value connection string.
func buildDSN(authority, user, password string, opts cppdbc.Options) string {
	host, port, database := splitAuthority(authority)

	var b strings.Builder
	fmt.Fprintf(&b, "host=%s ", host)
	if port != "" {
		fmt.Fprintf(&b, "port=%s ", port)
	}
	if database != "" {
		fmt.Fprintf(&b, "dbname=%s ", database)
	}
	if user != "" {
		fmt.Fprintf(&b, "user=%s ", user)
	}
	if password != "" {
		fmt.Fprintf(&b, "password=%s ", password)
	}

	if _, ok := opts["sslmode"]; !ok {
		b.WriteString("sslmode=disable ")
	}
	for k, v := range opts {
		fmt.Fprintf(&b, "%s=%s ", k, v)
	}

	return strings.TrimSpace(b.String())
}

func splitAuthority(authority string) (host, port, database string) {
	hostPort := authority
	if idx := strings.Index(authority, "/"); idx >= 0 {
		hostPort = authority[:idx]
		database = authority[idx+1:]
	}
	if idx := strings.LastIndex(hostPort, ":"); idx >= 0 {
		host = hostPort[:idx]
		port = hostPort[idx+1:]
	} else {
		host = hostPort
	}
	return host, port, database
}

var _ cppdbc.Driver = Driver{}
