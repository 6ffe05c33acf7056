package klog

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultOnce   sync.Once
	defaultLogger *slog.Logger
)

// Default returns a process-wide zap-backed slog.Logger suitable as the
// fallback logger for pool, txmanager, and driver packages when the caller
// does not supply one of their own. It falls back to slog.Default() if the
// zap provider cannot be built (e.g. no writable stderr in a sandboxed test
// runner), since logging must never block construction of the pool.
func Default() *slog.Logger {
	defaultOnce.Do(func() {
		z, err := InitProvider(false)
		if err != nil {
			defaultLogger = slog.Default()
			return
		}
		defaultLogger = NewSlogLogger(z)
	})
	return defaultLogger
}

func InitProvider(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	logger, err := cfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("klog: cannot init zap provider: %v", err)
	}

	return logger, nil
}
