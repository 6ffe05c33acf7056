package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cppdbc/cppdbc-go/cppdbc"
	cerrors "github.com/cppdbc/cppdbc-go/errors"
	"github.com/cppdbc/cppdbc-go/klog"
	"github.com/cppdbc/cppdbc-go/metrics"
)

// pollInterval is the coarse sleep used while a borrower waits for an idle
// slot to appear (§4.3.2 step 4).
const pollInterval = 10 * time.Millisecond

// ConnectionPool is a bounded collection of physical connections with
// borrow/return, validation, background maintenance, and graceful
// shutdown (§4.3) — the center of the design.
//
// Four logical regions guard pool state, matching §5's concurrency model:
// allMu over allConnections, idleMu over the idle FIFO, returnMu
// serializing return_connection, and borrowMu serializing the
// capacity-check-then-create step of get_connection. Whenever allMu and
// idleMu must both be held, allMu is acquired first — the maintenance loop
// obeys the same order, so this is the only ordering rule in the package.
type ConnectionPool struct {
	config PoolConfig
	driver cppdbc.Driver

	allMu          sync.Mutex
	allConnections []*PooledConnection

	idleMu          sync.Mutex
	idleConnections []*PooledConnection

	returnMu sync.Mutex
	borrowMu sync.Mutex

	activeCount atomic.Int64
	running     atomic.Bool
	alive       *atomic.Bool

	wakeCh              chan struct{}
	doneCh              chan struct{}
	maintenanceStopped  chan struct{}

	logger  *slog.Logger
	metrics metrics.Collector
}

// Option configures optional collaborators on a ConnectionPool.
type Option func(*ConnectionPool)

// WithLogger attaches a structured logger. If unset, klog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *ConnectionPool) { p.logger = logger }
}

// WithMetrics attaches a metrics.Collector. If unset, metrics.NoOp is used.
func WithMetrics(m metrics.Collector) Option {
	return func(p *ConnectionPool) { p.metrics = m }
}

// New constructs a ConnectionPool (§4.3.1): resolves driver from the
// registry, opens initial_size physical connections applying the
// configured isolation, and starts the maintenance loop. On any failure
// while seeding the initial connections, every partial connection is
// closed and the error is returned — the pool never exists half-built.
func New(ctx context.Context, registry *cppdbc.DriverRegistry, config PoolConfig, opts ...Option) (*ConnectionPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	driver, err := registry.RequireFamily(config.URL, cppdbc.Relational)
	if err != nil {
		return nil, err
	}

	if !cppdbc.AcceptsIsolation(driver, config.TransactionIsolation) {
		return nil, cerrors.Newf(cerrors.CodeUnsupportedIsolation,
			"driver %q does not accept isolation level %q", driver.Scheme(), config.TransactionIsolation)
	}

	p := &ConnectionPool{
		config:  config,
		driver:  driver,
		alive:              new(atomic.Bool),
		wakeCh:             make(chan struct{}, 1),
		doneCh:             make(chan struct{}),
		maintenanceStopped: make(chan struct{}),
		logger:             klog.Default(),
		metrics:            metrics.NoOp{},
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < config.InitialSize; i++ {
		pc, err := p.createPhysical(ctx)
		if err != nil {
			p.closePartial()
			return nil, err
		}
		p.allConnections = append(p.allConnections, pc)
		p.idleConnections = append(p.idleConnections, pc)
	}

	p.running.Store(true)
	p.alive.Store(true)

	go p.maintenanceLoop()

	p.logger.Info("connection pool started",
		slog.String("pool", config.Name),
		slog.Int("initial_size", config.InitialSize),
		slog.Int("max_size", config.MaxSize))

	return p, nil
}

// closePartial is used only during a failed New: closes whatever physical
// connections were already opened before the failure.
func (p *ConnectionPool) closePartial() {
	for _, pc := range p.allConnections {
		_ = pc.conn.Close()
	}
	p.allConnections = nil
	p.idleConnections = nil
}

func (p *ConnectionPool) createPhysical(ctx context.Context) (*PooledConnection, error) {
	conn, err := p.driver.Connect(ctx, p.config.URL, p.config.Username, p.config.Password, p.config.Options)
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.CodeConnectFailed, "failed to open physical connection")
	}

	if err := conn.SetTransactionIsolation(ctx, p.config.TransactionIsolation); err != nil {
		_ = conn.Close()
		return nil, err
	}

	pc := newPooledConnection(conn, p, p.config.TransactionIsolation)
	return pc, nil
}

func (p *ConnectionPool) validate(ctx context.Context, pc *PooledConnection) error {
	if _, err := pc.conn.ExecuteQuery(ctx, p.config.ValidationQuery); err != nil {
		return cerrors.Wrap(err, cerrors.CodeValidationFailed, "validation query failed")
	}
	return nil
}

// removeFromAll deletes pc from allConnections. Caller must hold allMu.
func (p *ConnectionPool) removeFromAll(pc *PooledConnection) {
	for i, c := range p.allConnections {
		if c == pc {
			p.allConnections = append(p.allConnections[:i], p.allConnections[i+1:]...)
			return
		}
	}
}

// containsInAll reports whether pc is still registered. Caller must hold allMu.
func (p *ConnectionPool) containsInAll(pc *PooledConnection) bool {
	for _, c := range p.allConnections {
		if c == pc {
			return true
		}
	}
	return false
}

// popIdle removes and returns the head of the idle FIFO, or nil. Caller
// must hold idleMu.
func (p *ConnectionPool) popIdle() *PooledConnection {
	if len(p.idleConnections) == 0 {
		return nil
	}
	pc := p.idleConnections[0]
	p.idleConnections = p.idleConnections[1:]
	return pc
}

// removeFromIdle deletes pc from the idle FIFO if present. Caller must hold
// idleMu.
func (p *ConnectionPool) removeFromIdle(pc *PooledConnection) {
	for i, c := range p.idleConnections {
		if c == pc {
			p.idleConnections = append(p.idleConnections[:i], p.idleConnections[i+1:]...)
			return
		}
	}
}

func (p *ConnectionPool) signalMaintenance() {
	select {
	case p.wakeCh <- struct{}{}:
	default:
	}
}

// GetConnection borrows a connection (§4.3.2), blocking up to
// ConnectionTimeout for an idle slot or spare capacity.
func (p *ConnectionPool) GetConnection(ctx context.Context) (*PooledConnection, error) {
	if !p.running.Load() {
		return nil, cerrors.New(cerrors.CodePoolClosed, "pool is closed")
	}

	deadline := time.Now().Add(p.config.ConnectionTimeout)

	for {
		if pc, err := p.tryBorrowIdle(ctx); err != nil {
			return nil, err
		} else if pc != nil {
			return p.checkOut(pc), nil
		}

		if pc, err := p.tryGrow(ctx); err != nil {
			return nil, err
		} else if pc != nil {
			return p.checkOut(pc), nil
		}

		if !p.running.Load() {
			return nil, cerrors.New(cerrors.CodePoolClosed, "pool is closed")
		}
		if time.Now().After(deadline) {
			p.metrics.RecordBorrowTimeout(p.config.Name)
			return nil, cerrors.New(cerrors.CodeBorrowTimeout, "timed out waiting for an available connection")
		}

		select {
		case <-ctx.Done():
			return nil, cerrors.Wrap(ctx.Err(), cerrors.CodeBorrowTimeout, "context cancelled while waiting for a connection")
		case <-time.After(pollInterval):
		}
	}
}

// tryBorrowIdle pops the idle head and, if TestOnBorrow is set, validates
// it — replacing it on failure. Returns (nil, nil) when no idle entry is
// available right now.
func (p *ConnectionPool) tryBorrowIdle(ctx context.Context) (*PooledConnection, error) {
	p.idleMu.Lock()
	pc := p.popIdle()
	p.idleMu.Unlock()

	if pc == nil {
		return nil, nil
	}

	if !p.config.TestOnBorrow {
		return pc, nil
	}

	if err := p.validate(ctx, pc); err == nil {
		return pc, nil
	}

	p.logger.Warn("borrowed connection failed validation, replacing", slog.String("pool", p.config.Name))
	p.metrics.RecordValidationFailure(p.config.Name)
	_ = pc.conn.Close()

	p.allMu.Lock()
	p.removeFromAll(pc)
	p.allMu.Unlock()

	if !p.running.Load() {
		return nil, nil
	}

	replacement, err := p.createPhysical(ctx)
	if err != nil {
		// Treat as "no idle available right now"; the caller's loop will
		// fall through to growth/wait.
		return nil, nil
	}

	p.allMu.Lock()
	p.allConnections = append(p.allConnections, replacement)
	p.allMu.Unlock()

	return replacement, nil
}

// tryGrow creates a new physical connection outside the all-connections
// lock, then rechecks the cap under the lock before admitting it (§4.3.2
// step 3).
func (p *ConnectionPool) tryGrow(ctx context.Context) (*PooledConnection, error) {
	p.borrowMu.Lock()
	defer p.borrowMu.Unlock()

	p.allMu.Lock()
	atCap := len(p.allConnections) >= p.config.MaxSize
	p.allMu.Unlock()
	if atCap {
		return nil, nil
	}

	pc, err := p.createPhysical(ctx)
	if err != nil {
		return nil, nil //nolint:nilerr // creation failures here fall back to waiting, not to a hard error
	}

	p.allMu.Lock()
	if len(p.allConnections) >= p.config.MaxSize {
		p.allMu.Unlock()
		_ = pc.conn.Close()
		return nil, nil
	}
	p.allConnections = append(p.allConnections, pc)
	p.allMu.Unlock()

	return pc, nil
}

func (p *ConnectionPool) checkOut(pc *PooledConnection) *PooledConnection {
	pc.reactivate()
	p.activeCount.Add(1)
	p.metrics.RecordBorrow(p.config.Name)
	return pc
}

// returnConnection is invoked only by PooledConnection.Close (§4.3.3).
func (p *ConnectionPool) returnConnection(pc *PooledConnection) error {
	p.returnMu.Lock()
	defer p.returnMu.Unlock()

	if !p.running.Load() {
		_ = pc.conn.Close()
		return nil
	}

	if !pc.active.Load() {
		return nil // duplicate return
	}

	p.allMu.Lock()
	present := p.containsInAll(pc)
	p.allMu.Unlock()
	if !present {
		return nil // evicted concurrently
	}

	if p.config.TestOnReturn {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := p.validate(ctx, pc)
		cancel()

		if err != nil {
			p.metrics.RecordValidationFailure(p.config.Name)
			p.activeCount.Add(-1)
			p.replaceInvalid(pc)
			p.signalMaintenance()
			return nil
		}
	}

	if pc.isolation != p.config.TransactionIsolation {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = pc.conn.SetTransactionIsolation(ctx, p.config.TransactionIsolation)
		cancel()
		pc.isolation = p.config.TransactionIsolation
	}

	pc.markIdle()
	p.activeCount.Add(-1)

	p.idleMu.Lock()
	p.idleConnections = append(p.idleConnections, pc)
	p.idleMu.Unlock()

	p.metrics.RecordReturn(p.config.Name)
	p.signalMaintenance()
	return nil
}

// replaceInvalid evicts pc (already known invalid) and, best-effort,
// installs a freshly created replacement onto the idle queue so capacity
// is preserved.
func (p *ConnectionPool) replaceInvalid(pc *PooledConnection) {
	_ = pc.conn.Close()

	p.allMu.Lock()
	p.removeFromAll(pc)
	p.allMu.Unlock()

	if !p.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.ConnectionTimeout)
	defer cancel()

	replacement, err := p.createPhysical(ctx)
	if err != nil {
		p.logger.Error("failed to replace invalid connection on return",
			slog.String("pool", p.config.Name), slog.Any("error", err))
		return
	}

	p.allMu.Lock()
	p.allConnections = append(p.allConnections, replacement)
	p.allMu.Unlock()

	p.idleMu.Lock()
	p.idleConnections = append(p.idleConnections, replacement)
	p.idleMu.Unlock()
}

// Close shuts the pool down (§4.3.5). Idempotent.
func (p *ConnectionPool) Close() error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	p.alive.Store(false)

	deadline := time.Now().Add(10 * time.Second)
	for p.activeCount.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(pollInterval)
	}
	p.activeCount.Store(0)

	close(p.doneCh)
	<-p.maintenanceStopped

	p.allMu.Lock()
	defer p.allMu.Unlock()
	p.idleMu.Lock()
	defer p.idleMu.Unlock()

	for _, pc := range p.allConnections {
		pc.active.Store(false)
		_ = pc.conn.Close()
	}
	p.allConnections = nil
	p.idleConnections = nil

	p.logger.Info("connection pool closed", slog.String("pool", p.config.Name))
	return nil
}
