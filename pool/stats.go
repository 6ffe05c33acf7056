package pool

// Stats is a point-in-time read of the pool's accounting state (§4.3.7).
type Stats struct {
	ActiveCount int
	IdleCount   int
	TotalCount  int
	IsRunning   bool
}

// ActiveCount returns the number of currently checked-out connections.
func (p *ConnectionPool) ActiveCount() int {
	return int(p.activeCount.Load())
}

// IdleCount returns the number of connections currently in the idle queue.
func (p *ConnectionPool) IdleCount() int {
	p.idleMu.Lock()
	defer p.idleMu.Unlock()
	return len(p.idleConnections)
}

// TotalCount returns |all_connections|.
func (p *ConnectionPool) TotalCount() int {
	p.allMu.Lock()
	defer p.allMu.Unlock()
	return len(p.allConnections)
}

// IsRunning reports whether the pool is accepting borrows.
func (p *ConnectionPool) IsRunning() bool {
	return p.running.Load()
}

// Config returns a copy of the pool's configuration, for callers (health
// checks, metrics, CLI) that need MaxSize/validation query/etc. alongside
// the live counters from GetStats.
func (p *ConnectionPool) Config() PoolConfig {
	return p.config
}

// GetStats returns a consistent-enough snapshot of all four counters for
// logging and health checks. The three counts are not read atomically
// together, matching the read-mostly nature of these accessors elsewhere
// in the package.
func (p *ConnectionPool) GetStats() Stats {
	return Stats{
		ActiveCount: p.ActiveCount(),
		IdleCount:   p.IdleCount(),
		TotalCount:  p.TotalCount(),
		IsRunning:   p.IsRunning(),
	}
}
