// Package txmanager pins a borrowed pooled connection to an opaque
// transaction id so cooperating goroutines can execute steps of the same
// logical transaction (§4.6).
package txmanager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/cppdbc/cppdbc-go/errors"
	"github.com/cppdbc/cppdbc-go/klog"
	"github.com/cppdbc/cppdbc-go/metrics"
	"github.com/cppdbc/cppdbc-go/pool"
)

// defaultTimeout is applied until SetTransactionTimeout overrides it.
const defaultTimeout = 5 * time.Minute

// sweepInterval is how often the background sweep checks for abandoned
// transactions.
const sweepInterval = 30 * time.Second

// Manager maps transaction ids to a borrowed PooledConnection held across
// multiple operations, possibly from different goroutines.
type Manager struct {
	p *pool.ConnectionPool

	mu       sync.Mutex
	records  map[string]*record
	timeout  atomicDuration

	logger  *slog.Logger
	metrics metrics.Collector

	stopCh chan struct{}
	doneCh chan struct{}
}

// atomicDuration is a tiny helper since time.Duration has no atomic type
// in the standard library; it is only ever written from SetTransactionTimeout
// and read from the sweep goroutine, both covered by mu.
type atomicDuration struct {
	d time.Duration
}

// Option configures optional collaborators on a Manager.
type Option func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics attaches a metrics.Collector.
func WithMetrics(collector metrics.Collector) Option {
	return func(m *Manager) { m.metrics = collector }
}

// New constructs a Manager over p and starts its abandoned-transaction
// sweep.
func New(p *pool.ConnectionPool, opts ...Option) *Manager {
	m := &Manager{
		p:       p,
		records: make(map[string]*record),
		timeout: atomicDuration{d: defaultTimeout},
		logger:  klog.Default(),
		metrics: metrics.NoOp{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.sweepLoop()
	return m
}

// SetTransactionTimeout changes how long a transaction may sit open before
// the background sweep rolls it back.
func (m *Manager) SetTransactionTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout.d = d
}

// BeginTransaction borrows a connection from the pool, disables its
// autocommit, and registers it under a freshly generated transaction id.
func (m *Manager) BeginTransaction(ctx context.Context) (string, error) {
	conn, err := m.p.GetConnection(ctx)
	if err != nil {
		return "", err
	}

	if _, err := conn.BeginTransaction(ctx); err != nil {
		_ = conn.Close()
		return "", err
	}

	id := uuid.NewString()

	m.mu.Lock()
	m.records[id] = &record{
		id:        id,
		conn:      conn,
		startedAt: time.Now(),
		status:    statusActive,
	}
	m.mu.Unlock()

	return id, nil
}

// GetTransactionConnection returns the connection held for txnID. Fails
// with CodeUnknownTransaction if the id is not (or no longer) registered.
func (m *Manager) GetTransactionConnection(txnID string) (*pool.PooledConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[txnID]
	if !ok {
		return nil, cerrors.Newf(cerrors.CodeUnknownTransaction, "unknown transaction %q", txnID)
	}
	return rec.conn, nil
}

// CommitTransaction commits the transaction, restores autocommit, returns
// the connection to the pool, and removes the record — even if the commit
// itself fails, so a caller can never leak the handle by retrying a failed
// commit.
func (m *Manager) CommitTransaction(ctx context.Context, txnID string) error {
	rec, err := m.takeRecord(txnID)
	if err != nil {
		return err
	}

	commitErr := rec.conn.Commit(ctx)
	if commitErr != nil {
		_ = rec.conn.Rollback(ctx)
	}
	closeErr := rec.conn.Close()

	m.metrics.RecordTransaction(rec.age(), commitErr == nil, commitErr)

	if commitErr != nil {
		return commitErr
	}
	return closeErr
}

// RollbackTransaction rolls back the transaction, returns the connection,
// and removes the record.
func (m *Manager) RollbackTransaction(ctx context.Context, txnID string) error {
	rec, err := m.takeRecord(txnID)
	if err != nil {
		return err
	}

	rollbackErr := rec.conn.Rollback(ctx)
	closeErr := rec.conn.Close()

	m.metrics.RecordTransaction(rec.age(), false, rollbackErr)

	if rollbackErr != nil {
		return rollbackErr
	}
	return closeErr
}

// takeRecord removes and returns the record for txnID, or
// CodeUnknownTransaction if absent.
func (m *Manager) takeRecord(txnID string) (*record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[txnID]
	if !ok {
		return nil, cerrors.Newf(cerrors.CodeUnknownTransaction, "unknown transaction %q", txnID)
	}
	delete(m.records, txnID)
	return rec, nil
}

// ActiveTransactionCount reports how many transactions are currently open.
func (m *Manager) ActiveTransactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Close stops the sweep, then rolls back every remaining record and returns
// their connections.
func (m *Manager) Close() error {
	close(m.stopCh)
	<-m.doneCh

	m.mu.Lock()
	remaining := make([]*record, 0, len(m.records))
	for id, rec := range m.records {
		remaining = append(remaining, rec)
		delete(m.records, id)
	}
	m.mu.Unlock()

	ctx := context.Background()
	var firstErr error
	for _, rec := range remaining {
		if err := rec.conn.Rollback(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		_ = rec.conn.Close()
	}
	return firstErr
}

func (m *Manager) sweepLoop() {
	defer close(m.doneCh)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepAbandoned()
		}
	}
}

// sweepAbandoned rolls back any transaction whose age exceeds the
// configured timeout.
func (m *Manager) sweepAbandoned() {
	m.mu.Lock()
	timeout := m.timeout.d
	var stale []*record
	for id, rec := range m.records {
		if rec.age() > timeout {
			stale = append(stale, rec)
			delete(m.records, id)
		}
	}
	m.mu.Unlock()

	for _, rec := range stale {
		m.logger.Warn("rolling back abandoned transaction",
			slog.String("transaction_id", rec.id), slog.Duration("age", rec.age()))

		ctx := context.Background()
		err := rec.conn.Rollback(ctx)
		_ = rec.conn.Close()
		m.metrics.RecordTransaction(rec.age(), false, err)
	}
}
