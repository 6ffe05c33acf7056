// Package mysql implements the cppdbc relational Driver contract against
// MySQL via go-sql-driver/mysql.
package mysql

import (
	"context"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
	"github.com/cppdbc/cppdbc-go/drivers/sqlcommon"
)

const Scheme = "mysql"

// Driver registers the "mysql" scheme. MySQL (InnoDB) accepts every
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
		return nil, cerrors.Newf(cerrors.CodeWrongDriverFamily, "mysql driver cannot handle scheme %q", parsed.Scheme)
	}

	dsn := buildDSN(parsed.Authority, user, password, opts)
	return sqlcommon.Open(ctx, "mysql", dsn, cppdbcURL, cppdbc.ReadCommitted)
}

// buildDSN turns a "<host>:<port>/<database>" authority into a
// go-sql-driver DSN of the form
// user:password@tcp(host:port)/dbname?param=value&...
func buildDSN(authority, user, password string, opts cppdbc.Options) string {
	host, port, database := splitAuthority(authority)
	if port == "" {
		port = "3306"
	}

	var cred strings.Builder
	if user != "" {
		cred.WriteString(user)
		if password != "" {
			cred.WriteString(":")
			cred.WriteString(password)
		}
	}

	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("charset", "utf8mb4")
	for k, v := range opts {
		params.Set(k, v)
	}

	dsn := cred.String() + "@tcp(" + host + ":" + port + ")/" + database
	if q := params.Encode(); q != "" {
		dsn += "?" + q
	}
	return dsn
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
