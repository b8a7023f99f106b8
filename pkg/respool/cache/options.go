package cache

import (
	"log/slog"

	"github.com/randalmurphal/respool/pkg/respool/observability"
)

// config holds optional Cache behavior.
type config[K comparable] struct {
	name      string
	normalize func(K) K
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
}

// defaultConfig returns a cache config with observability disabled.
func defaultConfig[K comparable]() config[K] {
	return config[K]{
		name:    "cache",
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures a Cache.
type Option[K comparable] func(*config[K])

// WithName sets the name reported in logs, metrics, and spans.
// Default: "cache"
func WithName[K comparable](name string) Option[K] {
	return func(c *config[K]) {
		if name != "" {
			c.name = name
		}
	}
}

// WithKeyNormalizer maps every key through fn before lookup and before it is
// passed to the factory.
func WithKeyNormalizer[K comparable](fn func(K) K) Option[K] {
	return func(c *config[K]) {
		c.normalize = fn
	}
}

// WithLogger enables structured logging of constructions.
func WithLogger[K comparable](logger *slog.Logger) Option[K] {
	return func(c *config[K]) {
		c.logger = logger
	}
}

// WithMetrics records construction metrics.
//
// Example:
//
//	c := cache.New[string, *Font](cache.WithMetrics[string](observability.NewMetricsRecorder()))
func WithMetrics[K comparable](m observability.MetricsRecorder) Option[K] {
	return func(c *config[K]) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpans traces every construction.
func WithSpans[K comparable](s observability.SpanManager) Option[K] {
	return func(c *config[K]) {
		if s != nil {
			c.spans = s
		}
	}
}
