// Package observability provides logging, metrics, and tracing hooks for
// respool components.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds component context to a logger.
// Returns a new logger with component and name fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "pool", "db")
//	enriched.Info("warming up") // includes component, name
func EnrichLogger(logger *slog.Logger, component, name string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("component", component),
		slog.String("name", name),
	)
}

// LogConstruct logs a successful factory run.
func LogConstruct(logger *slog.Logger, key string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("resource constructed",
		slog.String("key", key),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogConstructError logs a failed factory run. The failure is not cached.
func LogConstructError(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Error("resource construction failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogAcquire logs a checkout.
func LogAcquire(logger *slog.Logger, resourceID string, reused bool) {
	if logger == nil {
		return
	}
	logger.Debug("resource acquired",
		slog.String("resource_id", resourceID),
		slog.Bool("reused", reused),
	)
}

// LogRelease logs a return to the free list.
func LogRelease(logger *slog.Logger, resourceID string) {
	if logger == nil {
		return
	}
	logger.Debug("resource released",
		slog.String("resource_id", resourceID),
	)
}

// LogExhausted logs an acquire rejected at capacity.
func LogExhausted(logger *slog.Logger, capacity int) {
	if logger == nil {
		return
	}
	logger.Warn("pool exhausted",
		slog.Int("capacity", capacity),
	)
}

// LogNotOwned logs a release of an element the pool is not lending out.
func LogNotOwned(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Warn("release of resource not owned by pool")
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
