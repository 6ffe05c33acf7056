// Package healthcheck layers a cached liveness check and an uncached
// readiness check on top of a pool.ConnectionPool's statistics. Readiness
// borrows, validates, and returns a pooled connection, since that is what
// proves a pool (as opposed to a bare *sql.DB) is actually usable.
package healthcheck

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cppdbc/cppdbc-go/pool"
)

// Status is the overall health verdict.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Result is the outcome of a single health check.
type Result struct {
	Status    Status
	Message   string
	Timestamp time.Time
	Duration  time.Duration
	Stats     pool.Stats
}

// Checker runs liveness/readiness checks against a pool, caching liveness
// results for cacheDuration to avoid a health-check endpoint hammering the
// pool under load.
type Checker struct {
	p             *pool.ConnectionPool
	cacheDuration time.Duration

	mu       sync.RWMutex
	lastOK   *Result
	lastTime time.Time
}

// New returns a Checker with a 1-second liveness cache.
func New(p *pool.ConnectionPool) *Checker {
	return &Checker{p: p, cacheDuration: time.Second}
}

// WithCacheDuration overrides the liveness cache window.
func (c *Checker) WithCacheDuration(d time.Duration) *Checker {
	c.cacheDuration = d
	return c
}

// Liveness reports whether the pool is running and holds at least one
// connection, without touching the backend; it does not check capacity.
// Cached for cacheDuration.
func (c *Checker) Liveness(context.Context) Result {
	c.mu.RLock()
	if c.lastOK != nil && time.Since(c.lastTime) < c.cacheDuration {
		cached := *c.lastOK
		c.mu.RUnlock()
		return cached
	}
	c.mu.RUnlock()

	start := time.Now()
	stats := c.p.GetStats()
	result := Result{Timestamp: start, Duration: time.Since(start), Stats: stats}

	if !stats.IsRunning {
		result.Status = StatusUnhealthy
		result.Message = "pool is not running"
	} else if stats.TotalCount == 0 {
		result.Status = StatusDegraded
		result.Message = "pool has no connections"
	} else {
		result.Status = StatusHealthy
		result.Message = "pool is running"
	}

	c.mu.Lock()
	c.lastOK = &result
	c.lastTime = start
	c.mu.Unlock()

	return result
}

// Readiness borrows a connection, runs the pool's validation query, and
// returns it — proving the pool can actually serve a query right now, not
// merely that it believes itself to be running. Never cached.
func (c *Checker) Readiness(ctx context.Context) Result {
	start := time.Now()
	stats := c.p.GetStats()
	result := Result{Timestamp: start, Stats: stats}

	conn, err := c.p.GetConnection(ctx)
	if err != nil {
		result.Duration = time.Since(start)
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("borrow failed: %v", err)
		return result
	}
	defer conn.Close()

	cfg := c.p.Config()
	if _, err := conn.ExecuteQuery(ctx, cfg.ValidationQuery); err != nil {
		result.Duration = time.Since(start)
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("validation query failed: %v", err)
		return result
	}

	result.Duration = time.Since(start)
	result.Status = StatusHealthy
	result.Message = "validation query succeeded"

	if stats.TotalCount >= cfg.MaxSize {
		result.Status = StatusDegraded
		result.Message = "pool at max capacity"
	}

	return result
}
