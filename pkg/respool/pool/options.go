package pool

import (
	"log/slog"

	"github.com/randalmurphal/respool/pkg/respool/observability"
)

// config holds optional Pool behavior.
type config struct {
	name    string
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// defaultConfig returns a pool config with observability disabled.
func defaultConfig() config {
	return config{
		name:    "pool",
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures a Pool.
type Option func(*config)

// WithName sets the name reported in logs, metrics, and spans.
// Default: "pool"
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger enables structured logging of checkouts, returns, and constructions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records pool metrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans traces every construction.
func WithSpans(s observability.SpanManager) Option {
	return func(c *config) {
		if s != nil {
			c.spans = s
		}
	}
}
