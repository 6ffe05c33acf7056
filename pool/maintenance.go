package pool

import (
	"context"
	"log/slog"
	"time"
)

// maintenanceLoop is the single background task per pool. It wakes on
// ValidationInterval, on every return (via signalMaintenance), and on
// shutdown (via doneCh) — never on a fixed 30s cadence, since the
// configured interval is what operators actually tune.
func (p *ConnectionPool) maintenanceLoop() {
	defer close(p.maintenanceStopped)

	ticker := time.NewTicker(p.config.ValidationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.doneCh:
			return
		case <-ticker.C:
			p.runMaintenanceCycle()
		case <-p.wakeCh:
			p.runMaintenanceCycle()
		}

		if !p.running.Load() {
			return
		}
	}
}

// runMaintenanceCycle evicts stale/aged idle connections down to MinIdle,
// then backfills up to MinIdle (§4.3.4).
func (p *ConnectionPool) runMaintenanceCycle() {
	p.allMu.Lock()
	p.idleMu.Lock()

	now := time.Now()
	var evicted []*PooledConnection

	remainingIdle := p.idleConnections[:0:0]
	for _, pc := range p.idleConnections {
		if pc.active.Load() {
			remainingIdle = append(remainingIdle, pc)
			continue
		}

		idleMs := now.Sub(pc.lastUsedAt())
		lifeMs := now.Sub(pc.createdAt)
		stale := idleMs > p.config.IdleTimeout || lifeMs > p.config.MaxLifetime

		if stale && len(p.allConnections) > p.config.MinIdle {
			p.removeFromAll(pc)
			evicted = append(evicted, pc)
			continue
		}
		remainingIdle = append(remainingIdle, pc)
	}
	p.idleConnections = remainingIdle

	needed := 0
	if p.running.Load() && len(p.allConnections) < p.config.MinIdle {
		needed = p.config.MinIdle - len(p.allConnections)
	}

	p.idleMu.Unlock()
	p.allMu.Unlock()

	for _, pc := range evicted {
		_ = pc.conn.Close()
		p.logger.Debug("maintenance evicted idle connection", slog.String("pool", p.config.Name))
	}

	for i := 0; i < needed; i++ {
		if !p.running.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.config.ConnectionTimeout)
		pc, err := p.createPhysical(ctx)
		cancel()
		if err != nil {
			p.logger.Error("maintenance failed to backfill to min_idle",
				slog.String("pool", p.config.Name), slog.Any("error", err))
			return
		}

		p.allMu.Lock()
		p.allConnections = append(p.allConnections, pc)
		p.allMu.Unlock()

		p.idleMu.Lock()
		p.idleConnections = append(p.idleConnections, pc)
		p.idleMu.Unlock()
	}
}
