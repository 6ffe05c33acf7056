package pool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	"pgregory.net/rapid"
)

// TestPropertyAccounting is P1: across any sequence of borrow/return,
// total == idle + active, total <= max_size.
func TestPropertyAccounting(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := testConfig("p1")
		cfg.InitialSize = rapid.IntRange(1, 4).Draw(rt, "initial")
		cfg.MaxSize = cfg.InitialSize + rapid.IntRange(0, 4).Draw(rt, "headroom")
		cfg.MinIdle = rapid.IntRange(0, cfg.InitialSize).Draw(rt, "minIdle")
		cfg.ConnectionTimeout = 200 * time.Millisecond

		p, _ := newTestPool(t, cfg)
		defer p.Close()

		ctx := context.Background()
		var held []*PooledConnection

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(held) == 0 || rapid.Bool().Draw(rt, "borrow") {
				h, err := p.GetConnection(ctx)
				if err == nil {
					held = append(held, h)
				}
			} else {
				idx := rapid.IntRange(0, len(held)-1).Draw(rt, "which")
				_ = held[idx].Close()
				held = append(held[:idx], held[idx+1:]...)
			}

			stats := p.GetStats()
			if stats.TotalCount != stats.ActiveCount+stats.IdleCount {
				rt.Fatalf("total %d != active %d + idle %d", stats.TotalCount, stats.ActiveCount, stats.IdleCount)
			}
			if stats.TotalCount > cfg.MaxSize {
				rt.Fatalf("total %d exceeds max_size %d", stats.TotalCount, cfg.MaxSize)
			}
		}
	})
}

// TestPropertyUniqueOwnership is P2: a handle is never both idle and
// checked out, across a randomly generated sequence of borrows/returns.
func TestPropertyUniqueOwnership(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := testConfig("p2")
		cfg.InitialSize = rapid.IntRange(1, 4).Draw(rt, "initial")
		cfg.MaxSize = cfg.InitialSize + rapid.IntRange(0, 3).Draw(rt, "headroom")
		cfg.MinIdle = rapid.IntRange(0, cfg.InitialSize).Draw(rt, "minIdle")
		cfg.ConnectionTimeout = 200 * time.Millisecond

		p, _ := newTestPool(t, cfg)
		defer p.Close()

		ctx := context.Background()
		var held []*PooledConnection

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if len(held) == 0 || rapid.Bool().Draw(rt, "borrow") {
				h, err := p.GetConnection(ctx)
				if err != nil {
					continue
				}
				held = append(held, h)

				p.idleMu.Lock()
				for _, pc := range p.idleConnections {
					if pc == h {
						p.idleMu.Unlock()
						rt.Fatalf("freshly checked-out handle found in idle queue")
					}
				}
				p.idleMu.Unlock()

				if !h.IsActive() {
					rt.Fatalf("checked-out handle is not marked active")
				}
			} else {
				idx := rapid.IntRange(0, len(held)-1).Draw(rt, "which")
				returned := held[idx]
				_ = returned.Close()
				held = append(held[:idx], held[idx+1:]...)

				p.idleMu.Lock()
				seen := 0
				for _, pc := range p.idleConnections {
					if pc == returned {
						seen++
					}
				}
				p.idleMu.Unlock()
				if seen > 1 {
					rt.Fatalf("returned handle appears %d times in idle queue", seen)
				}
			}

			for _, h := range held {
				if !h.IsActive() {
					rt.Fatalf("held handle %p lost its active flag", h)
				}
			}
		}

		for _, h := range held {
			_ = h.Close()
		}
	})
}

// TestPropertyIdempotentClose is P3: closing a handle any number of times
// returns the physical connection at most once (observable here as: the
// pool's active accounting only ever decrements by one, regardless of how
// many times or in what order Close is called).
func TestPropertyIdempotentClose(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := testConfig("p3")
		cfg.InitialSize, cfg.MaxSize, cfg.MinIdle = 1, 1, 0
		p, _ := newTestPool(t, cfg)
		defer p.Close()

		ctx := context.Background()
		a, err := p.GetConnection(ctx)
		if err != nil {
			rt.Fatal(err)
		}

		closes := rapid.IntRange(1, 8).Draw(rt, "closes")
		concurrent := rapid.Bool().Draw(rt, "concurrent")

		if concurrent {
			var wg sync.WaitGroup
			errs := make([]error, closes)
			for i := 0; i < closes; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = a.Close()
				}(i)
			}
			wg.Wait()
			for i, err := range errs {
				if err != nil {
					rt.Fatalf("concurrent close #%d: %v", i, err)
				}
			}
		} else {
			for i := 0; i < closes; i++ {
				if err := a.Close(); err != nil {
					rt.Fatalf("close #%d: %v", i, err)
				}
			}
		}

		if p.ActiveCount() != 0 {
			rt.Fatalf("active count %d after %d closes, want 0", p.ActiveCount(), closes)
		}
		if p.IdleCount() != 1 {
			rt.Fatalf("idle count %d after %d closes, want 1 (returned exactly once)", p.IdleCount(), closes)
		}
	})
}

// TestPropertyBorrowFIFO is P6: with no concurrent returns, idle entries
// are handed out in enqueue order, for a randomly sized idle queue.
func TestPropertyBorrowFIFO(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := testConfig("p6")
		n := rapid.IntRange(1, 6).Draw(rt, "size")
		cfg.InitialSize, cfg.MaxSize, cfg.MinIdle = n, n, 0
		p, _ := newTestPool(t, cfg)
		defer p.Close()

		p.idleMu.Lock()
		wantOrder := make([]*PooledConnection, len(p.idleConnections))
		copy(wantOrder, p.idleConnections)
		p.idleMu.Unlock()

		ctx := context.Background()
		for i, want := range wantOrder {
			got, err := p.GetConnection(ctx)
			if err != nil {
				rt.Fatal(err)
			}
			if got != want {
				rt.Fatalf("borrow %d order mismatch: got %p want %p", i, got, want)
			}
		}
	})
}

// TestPropertyValidationReplacement is P5: a borrow-time validation
// failure never surfaces a broken connection to the caller. The pool
// evicts the failing idle connection and hands back a freshly created
// replacement instead.
func TestPropertyValidationReplacement(t *testing.T) {
	cfg := testConfig("p5")
	cfg.InitialSize, cfg.MaxSize, cfg.MinIdle = 2, 2, 0
	cfg.TestOnBorrow = true
	p, driver := newTestPool(t, cfg)
	defer p.Close()

	ctx := context.Background()
	driver.failValidate.Store(true)

	h, err := p.GetConnection(ctx)
	if err != nil {
		t.Fatalf("GetConnection with failing validation: %v", err)
	}
	defer h.Close()

	if h.conn.IsClosed() {
		t.Fatal("handed-back connection is already closed")
	}

	if _, err := h.ExecuteUpdate(ctx, "SELECT 1"); err != nil {
		t.Fatalf("replacement connection unusable: %v", err)
	}

	stats := p.GetStats()
	if stats.TotalCount != cfg.MaxSize {
		t.Fatalf("total count %d after replacement, want %d", stats.TotalCount, cfg.MaxSize)
	}
}

// TestPropertyIsolationReset is P8: returning a connection whose
// isolation level was changed mid-use resets it to the pool's configured
// level before the next borrower sees it.
func TestPropertyIsolationReset(t *testing.T) {
	cfg := testConfig("p8")
	cfg.InitialSize, cfg.MaxSize, cfg.MinIdle = 1, 1, 0
	cfg.TestOnReturn = true
	cfg.TransactionIsolation = cppdbc.ReadCommitted
	p, _ := newTestPool(t, cfg)
	defer p.Close()

	ctx := context.Background()

	h, err := p.GetConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := h.SetTransactionIsolation(ctx, cppdbc.Serializable); err != nil {
		t.Fatalf("dirty isolation: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("return connection: %v", err)
	}

	h2, err := p.GetConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Close()

	if got := h2.GetTransactionIsolation(); got != cfg.TransactionIsolation {
		t.Fatalf("borrowed connection isolation = %v, want %v (pool default)", got, cfg.TransactionIsolation)
	}
}
