package errors

import (
	stderrors "errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ClassifyPostgresError maps a pgconn.PgError to a Code. See
// https://www.postgresql.org/docs/current/errcodes-appendix.html
func ClassifyPostgresError(err error) (Code, bool) {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return "", false
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		return CodeAlreadyExists, true
	case "23503", "23502", "23514", "23P01", "23001": // fk/not-null/check/exclusion/restrict
		return CodeInvalidArgument, true
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return CodeConflict, true
	case "42501": // insufficient_privilege
		return CodePermission, true
	case "42P01": // undefined_table
		return CodeNotFound, true
	case "42601", "42701", "42702", "42703", "42P02":
		return CodeInvalidArgument, true
	case "53000", "53100", "53200", "53300", "57000", "57P01", "57P02", "57P03":
		return CodeUnavailable, true
	case "57014": // query_canceled
		return CodeCancelled, true
	case "58000":
		return CodeInternal, true
	default:
		return CodeDatabase, true
	}
}

// ClassifyMySQLError maps a mysql.MySQLError to a Code. See
// https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
func ClassifyMySQLError(err error) (Code, bool) {
	var mysqlErr *mysql.MySQLError
	if !stderrors.As(err, &mysqlErr) {
		return "", false
	}

	switch mysqlErr.Number {
	case 1062: // ER_DUP_ENTRY
		return CodeAlreadyExists, true
	case 1216, 1217, 1451, 1452: // FK violations
		return CodeInvalidArgument, true
	case 1054, 1064: // bad field / parse error
		return CodeInvalidArgument, true
	case 1205: // lock wait timeout
		return CodeTimeout, true
	case 1213: // deadlock
		return CodeConflict, true
	case 1044, 1142, 1143: // access denied to db/table/column
		return CodePermission, true
	case 1045: // access denied for user
		return CodeUnauthenticated, true
	case 1049, 1051: // unknown database / table
		return CodeNotFound, true
	case 1040, 1042, 1043, 1037, 1041, 1159, 1160: // resource/connection exhaustion
		return CodeUnavailable, true
	default:
		return CodeDatabase, true
	}
}

// IsUniqueViolation reports whether err is a unique-constraint violation on
// either Postgres or MySQL.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// IsDeadlock reports whether err is a deadlock on either Postgres or MySQL.
func IsDeadlock(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "40P01"
	}
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213
	}
	return false
}

// IsSerializationFailure reports a Postgres serialization failure (40001).
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}

// IsRetryable reports whether err represents a transient condition worth
// retrying: deadlocks, serialization failures, timeouts, and backend
// unavailability.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsDeadlock(err) || IsSerializationFailure(err) {
		return true
	}
	var customErr *Error
	if stderrors.As(err, &customErr) {
		switch customErr.Code {
		case CodeUnavailable, CodeTimeout, CodeConflict, CodeConnectFailed, CodeBorrowTimeout:
			return true
		}
	}
	return false
}

// ClassifyDriverError wraps a raw driver error (from database/sql, pgx, or
// go-sql-driver/mysql) into an *Error with the appropriate Code, falling
// back to CodeDriverError when no specific classification applies.
func ClassifyDriverError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if code, ok := ClassifyPostgresError(err); ok {
		return Wrap(err, code, message)
	}
	if code, ok := ClassifyMySQLError(err); ok {
		return Wrap(err, code, message)
	}
	return Wrap(err, CodeDriverError, message)
}
