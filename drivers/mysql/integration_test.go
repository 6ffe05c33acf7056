//go:build integration

package mysql_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	_ "github.com/cppdbc/cppdbc-go/drivers/mysql"
)

// TestDriver_AgainstRealContainer exercises the registered "mysql" driver
// against a throwaway MySQL instance. Run with `go test -tags=integration`
// in an environment with a container runtime available.
func TestDriver_AgainstRealContainer(t *testing.T) {
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("cppdbc"),
		tcmysql.WithUsername("cppdbc"),
		tcmysql.WithPassword("cppdbc"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("cpp_dbc:mysql://%s:%s/cppdbc", host, port.Port())

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := cppdbc.Connect(connectCtx, url, "cppdbc", "cppdbc", cppdbc.Options{})
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ExecuteUpdate(ctx, "CREATE TABLE IF NOT EXISTS widgets (id INT PRIMARY KEY, name VARCHAR(64))")
	require.NoError(t, err)

	_, err = conn.ExecuteUpdate(ctx, "INSERT INTO widgets (id, name) VALUES (1, 'sprocket')")
	require.NoError(t, err)

	rs, err := conn.ExecuteQuery(ctx, "SELECT name FROM widgets WHERE id = 1")
	require.NoError(t, err)
	defer rs.Close()

	require.True(t, rs.Next())
	name, err := rs.GetString(1)
	require.NoError(t, err)
	require.Equal(t, "sprocket", name)
}
