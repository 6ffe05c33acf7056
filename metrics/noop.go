package metrics

import "time"

// NoOp discards every event. It is the default Collector when none is
// configured.
type NoOp struct{}

func (NoOp) RecordBorrow(string)                                {}
func (NoOp) RecordReturn(string)                                {}
func (NoOp) RecordValidationFailure(string)                     {}
func (NoOp) RecordBorrowTimeout(string)                         {}
func (NoOp) RecordTransaction(time.Duration, bool, error)       {}
func (NoOp) RecordPoolStats(string, PoolStats)                  {}
