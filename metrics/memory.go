package metrics

import (
	"sync"
	"time"
)

// InMemory accumulates counters for tests and debugging. Not intended for
// high-traffic production use — it never evicts its transaction duration
// history.
type InMemory struct {
	mu sync.RWMutex

	borrowCount            int64
	returnCount             int64
	validationFailureCount  int64
	borrowTimeoutCount      int64

	txCount         int64
	txCommitCount   int64
	txRollbackCount int64
	txErrorCount    int64
	txDurations     []time.Duration

	lastStats     map[string]PoolStats
	lastStatsTime time.Time
}

// NewInMemory returns an empty InMemory collector.
func NewInMemory() *InMemory {
	return &InMemory{lastStats: make(map[string]PoolStats)}
}

func (m *InMemory) RecordBorrow(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.borrowCount++
}

func (m *InMemory) RecordReturn(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnCount++
}

func (m *InMemory) RecordValidationFailure(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationFailureCount++
}

func (m *InMemory) RecordBorrowTimeout(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.borrowTimeoutCount++
}

func (m *InMemory) RecordTransaction(duration time.Duration, committed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.txCount++
	m.txDurations = append(m.txDurations, duration)
	if committed {
		m.txCommitCount++
	} else {
		m.txRollbackCount++
	}
	if err != nil {
		m.txErrorCount++
	}
}

func (m *InMemory) RecordPoolStats(poolName string, stats PoolStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastStats[poolName] = stats
	m.lastStatsTime = time.Now()
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	BorrowCount            int64
	ReturnCount            int64
	ValidationFailureCount int64
	BorrowTimeoutCount     int64
	TxCount                int64
	TxCommitCount          int64
	TxRollbackCount        int64
	TxErrorCount           int64
	LastStats              map[string]PoolStats
	LastStatsTime          time.Time
}

// Snapshot returns a copy of the current counters.
func (m *InMemory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]PoolStats, len(m.lastStats))
	for k, v := range m.lastStats {
		stats[k] = v
	}

	return Snapshot{
		BorrowCount:            m.borrowCount,
		ReturnCount:            m.returnCount,
		ValidationFailureCount: m.validationFailureCount,
		BorrowTimeoutCount:     m.borrowTimeoutCount,
		TxCount:                m.txCount,
		TxCommitCount:          m.txCommitCount,
		TxRollbackCount:        m.txRollbackCount,
		TxErrorCount:           m.txErrorCount,
		LastStats:              stats,
		LastStatsTime:          m.lastStatsTime,
	}
}
