// Package metrics defines the observability surface the connection pool
// and transaction manager report through, plus no-op/logging/in-memory
// implementations.
package metrics

import "time"

// PoolStats is the snapshot passed to Collector.RecordPoolStats, mirroring
// pool.Stats without importing the pool package.
type PoolStats struct {
	ActiveCount int
	IdleCount   int
	TotalCount  int
	IsRunning   bool
}

// Collector receives events from the connection pool and transaction
// manager. Implementations must be safe for concurrent use.
type Collector interface {
	// RecordBorrow is called each time GetConnection succeeds.
	RecordBorrow(poolName string)

	// RecordReturn is called each time a handle is returned to the idle queue.
	RecordReturn(poolName string)

	// RecordValidationFailure is called when a validation query fails,
	// either on borrow or on return.
	RecordValidationFailure(poolName string)

	// RecordBorrowTimeout is called when GetConnection exhausts ConnectionTimeout.
	RecordBorrowTimeout(poolName string)

	// RecordTransaction is called when a transaction ends, successfully
	// or not, with its lifetime and outcome.
	RecordTransaction(duration time.Duration, committed bool, err error)

	// RecordPoolStats receives a full accounting snapshot. Neither the pool
	// nor healthcheck calls it; reporting stats is left to the caller.
	RecordPoolStats(poolName string, stats PoolStats)
}
