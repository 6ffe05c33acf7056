package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
)

func testConfig(name string) PoolConfig {
	cfg := DefaultPoolConfig(name, "cpp_dbc:fakedb://localhost:1/test", "u", "p")
	cfg.InitialSize = 1
	cfg.MaxSize = 1
	cfg.MinIdle = 0
	cfg.ConnectionTimeout = 500 * time.Millisecond
	cfg.ValidationInterval = 10 * time.Millisecond
	return cfg
}

// Scenario 1: borrow timeout.
func TestBorrowTimeout(t *testing.T) {
	p, _ := newTestPool(t, testConfig("scenario1"))
	defer p.Close()

	ctx := context.Background()
	a, err := p.GetConnection(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = p.GetConnection(ctx)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, cerrors.HasCode(err, cerrors.CodeBorrowTimeout))
	assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)

	require.NoError(t, a.Close())

	b, err := p.GetConnection(ctx)
	require.NoError(t, err)
	assert.NoError(t, b.Close())
}

// Scenario 2: invalid-on-return replacement.
func TestInvalidOnReturnReplacement(t *testing.T) {
	cfg := testConfig("scenario2")
	cfg.MinIdle = 3
	cfg.InitialSize = 3
	cfg.MaxSize = 5
	cfg.TestOnReturn = true
	p, _ := newTestPool(t, cfg)
	defer p.Close()

	ctx := context.Background()
	h, err := p.GetConnection(ctx)
	require.NoError(t, err)

	fc := h.conn.(*fakeConn)
	fc.markInvalid()

	require.NoError(t, h.Close())

	time.Sleep(200 * time.Millisecond)

	stats := p.GetStats()
	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 0, stats.ActiveCount)
	assert.Equal(t, 3, stats.IdleCount)

	fresh, err := p.GetConnection(ctx)
	require.NoError(t, err)
	_, err = fresh.ExecuteQuery(ctx, cfg.ValidationQuery)
	assert.NoError(t, err)
	assert.NoError(t, fresh.Close())
}

// Scenario 3: maintenance eviction.
func TestMaintenanceEviction(t *testing.T) {
	cfg := testConfig("scenario3")
	cfg.InitialSize = 1
	cfg.MinIdle = 1
	cfg.MaxSize = 5
	cfg.IdleTimeout = 100 * time.Millisecond
	cfg.ValidationInterval = 10 * time.Millisecond
	p, _ := newTestPool(t, cfg)
	defer p.Close()

	ctx := context.Background()
	var handles []*PooledConnection
	for i := 0; i < 3; i++ {
		h, err := p.GetConnection(ctx)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		require.NoError(t, h.Close())
	}

	assert.Eventually(t, func() bool {
		stats := p.GetStats()
		return stats.IdleCount == 1 && stats.TotalCount == 1
	}, 2*time.Second, 20*time.Millisecond)
}

// Scenario 5: shutdown with an outstanding handle.
func TestShutdownWithOutstandingHandle(t *testing.T) {
	cfg := testConfig("scenario5")
	p, _ := newTestPool(t, cfg)

	ctx := context.Background()
	h, err := p.GetConnection(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- p.Close() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return within 10s")
	}

	assert.NotPanics(t, func() {
		_ = h.Close()
	})
}

func TestPoolConstructionRejectsWrongFamily(t *testing.T) {
	driver := &fakeColumnarDriver{}
	registry := cppdbc.NewDriverRegistry()
	registry.Register(driver)

	cfg := DefaultPoolConfig("wrongfamily", "cpp_dbc:fakecolumnar://localhost:1/test", "u", "p")
	_, err := New(context.Background(), registry, cfg)
	require.Error(t, err)
	assert.True(t, cerrors.HasCode(err, cerrors.CodeWrongDriverFamily))
}

type fakeColumnarDriver struct{}

func (fakeColumnarDriver) Scheme() string        { return "fakecolumnar" }
func (fakeColumnarDriver) Family() cppdbc.Family { return cppdbc.Columnar }
func (fakeColumnarDriver) AcceptedIsolationLevels() []cppdbc.IsolationLevel {
	return []cppdbc.IsolationLevel{cppdbc.Serializable}
}
func (fakeColumnarDriver) Connect(context.Context, string, string, string, cppdbc.Options) (cppdbc.Connection, error) {
	return nil, nil
}
