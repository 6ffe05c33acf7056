package sqlcommon

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppdbc/cppdbc-go/cppdbc"
)

func newMockConnection(t *testing.T) (*Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(db, "mock://test", cppdbc.ReadCommitted), mock
}

func TestExecuteUpdate_RowsAffected(t *testing.T) {
	conn, mock := newMockConnection(t)

	mock.ExpectExec("UPDATE accounts SET balance = \\?").
		WithArgs(100, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := conn.ExecuteUpdate(context.Background(), "UPDATE accounts SET balance = ?", 100, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQuery_ScansRows(t *testing.T) {
	conn, mock := newMockConnection(t)

	rows := sqlmock.NewRows([]string{"id", "name"}).
		AddRow(1, "alice").
		AddRow(2, "bob")
	mock.ExpectQuery("SELECT id, name FROM users").WillReturnRows(rows)

	rs, err := conn.ExecuteQuery(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	defer rs.Close()

	assert.True(t, rs.IsBeforeFirst())

	require.True(t, rs.Next())
	id, err := rs.GetLong(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	name, err := rs.GetString(2)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Equal(t, 1, rs.GetRow())

	require.True(t, rs.Next())
	id, err = rs.GetLong(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	name, err = rs.GetString(2)
	require.NoError(t, err)
	assert.Equal(t, "bob", name)

	assert.False(t, rs.Next())
	assert.True(t, rs.IsAfterLast())
	assert.NoError(t, rs.Err())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginCommit(t *testing.T) {
	conn, mock := newMockConnection(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	started, err := conn.BeginTransaction(context.Background())
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, conn.TransactionActive())

	_, err = conn.ExecuteUpdate(context.Background(), "INSERT INTO t VALUES (1)")
	require.NoError(t, err)

	require.NoError(t, conn.Commit(context.Background()))
	assert.False(t, conn.TransactionActive())
	assert.True(t, conn.GetAutoCommit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginRollback(t *testing.T) {
	conn, mock := newMockConnection(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := conn.BeginTransaction(context.Background())
	require.NoError(t, err)

	require.NoError(t, conn.Rollback(context.Background()))
	assert.False(t, conn.TransactionActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseInvalidatesOpenStatements(t *testing.T) {
	conn, mock := newMockConnection(t)

	mock.ExpectPrepare("SELECT 1")
	mock.ExpectClose()

	stmt, err := conn.PrepareStatement(context.Background(), "SELECT 1")
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())

	_, err = stmt.ExecuteQuery(context.Background())
	assert.Error(t, err)
}

func TestGetNullValue(t *testing.T) {
	conn, mock := newMockConnection(t)

	rows := sqlmock.NewRows([]string{"value"}).AddRow(nil)
	mock.ExpectQuery("SELECT value FROM t").WillReturnRows(rows)

	rs, err := conn.ExecuteQuery(context.Background(), "SELECT value FROM t")
	require.NoError(t, err)
	defer rs.Close()

	require.True(t, rs.Next())
	isNull, err := rs.IsNull(1)
	require.NoError(t, err)
	assert.True(t, isNull)
	s, err := rs.GetString(1)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}
