package txmanager

import (
	"time"

	"github.com/cppdbc/cppdbc-go/pool"
)

// status is the lifecycle state of a transaction record.
type status string

const (
	statusActive       status = "active"
	statusCommitted    status = "committed"
	statusRolledBack   status = "rolled-back"
)

// record is the Transaction Manager's bookkeeping entry for one open
// transaction id (§3 "Transaction record").
type record struct {
	id        string
	conn      *pool.PooledConnection
	startedAt time.Time
	status    status
}

func (r *record) age() time.Duration {
	return time.Since(r.startedAt)
}
