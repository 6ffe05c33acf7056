package metrics

import (
	"log/slog"
	"time"
)

// Logging reports every event as a structured log line. Useful in
// development or anywhere a full metrics backend is overkill.
type Logging struct {
	logger *slog.Logger
}

// NewLogging returns a Collector backed by logger.
func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) RecordBorrow(poolName string) {
	l.logger.Debug("connection borrowed", slog.String("pool", poolName))
}

func (l *Logging) RecordReturn(poolName string) {
	l.logger.Debug("connection returned", slog.String("pool", poolName))
}

func (l *Logging) RecordValidationFailure(poolName string) {
	l.logger.Warn("connection failed validation", slog.String("pool", poolName))
}

func (l *Logging) RecordBorrowTimeout(poolName string) {
	l.logger.Warn("borrow timed out", slog.String("pool", poolName))
}

func (l *Logging) RecordTransaction(duration time.Duration, committed bool, err error) {
	if err != nil {
		l.logger.Error("transaction failed",
			slog.Duration("duration", duration), slog.Bool("committed", committed), slog.Any("error", err))
		return
	}
	l.logger.Debug("transaction completed",
		slog.Duration("duration", duration), slog.Bool("committed", committed))
}

func (l *Logging) RecordPoolStats(poolName string, stats PoolStats) {
	l.logger.Debug("pool stats",
		slog.String("pool", poolName),
		slog.Int("active", stats.ActiveCount),
		slog.Int("idle", stats.IdleCount),
		slog.Int("total", stats.TotalCount),
		slog.Bool("running", stats.IsRunning))
}
