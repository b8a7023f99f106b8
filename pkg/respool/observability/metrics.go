package observability

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	rperrors "github.com/randalmurphal/respool/pkg/respool/errors"
	"github.com/randalmurphal/respool/pkg/respool/lazy"
)

// MetricsRecorder records respool metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordConstruction records a factory run with its duration and error status.
	RecordConstruction(ctx context.Context, component, name string, durationMs float64, err error)

	// RecordAcquire records a pool checkout attempt.
	// reused is true when the element came from the free list.
	RecordAcquire(ctx context.Context, pool string, reused bool, err error)

	// RecordRelease records a pool return attempt.
	RecordRelease(ctx context.Context, pool string, err error)

	// RecordPoolState records the current free/in-use partition sizes.
	RecordPoolState(ctx context.Context, pool string, free, inUse int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	constructions       metric.Int64Counter
	constructionErrors  metric.Int64Counter
	constructionLatency metric.Float64Histogram
	acquires            metric.Int64Counter
	exhausted           metric.Int64Counter
	releases            metric.Int64Counter
	notOwned            metric.Int64Counter
	free                metric.Int64Gauge
	inUse               metric.Int64Gauge
}

// defaultMetrics holds the instruments shared by every recorder built from
// the global meter provider. A failed build is retried on the next call.
var defaultMetrics lazy.Cell[*otelMetrics]

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("respool")
	m := &otelMetrics{}
	var err error

	if m.constructions, err = meter.Int64Counter("respool.constructions",
		metric.WithDescription("Number of successful factory runs"),
	); err != nil {
		return nil, err
	}
	if m.constructionErrors, err = meter.Int64Counter("respool.construction.errors",
		metric.WithDescription("Number of failed factory runs"),
	); err != nil {
		return nil, err
	}
	if m.constructionLatency, err = meter.Float64Histogram("respool.construction.latency_ms",
		metric.WithDescription("Factory latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.acquires, err = meter.Int64Counter("respool.pool.acquires",
		metric.WithDescription("Number of successful pool checkouts"),
	); err != nil {
		return nil, err
	}
	if m.exhausted, err = meter.Int64Counter("respool.pool.exhausted",
		metric.WithDescription("Number of checkouts rejected at capacity"),
	); err != nil {
		return nil, err
	}
	if m.releases, err = meter.Int64Counter("respool.pool.releases",
		metric.WithDescription("Number of successful pool returns"),
	); err != nil {
		return nil, err
	}
	if m.notOwned, err = meter.Int64Counter("respool.pool.not_owned",
		metric.WithDescription("Number of returns of elements not checked out"),
	); err != nil {
		return nil, err
	}
	if m.free, err = meter.Int64Gauge("respool.pool.free",
		metric.WithDescription("Elements available for checkout"),
	); err != nil {
		return nil, err
	}
	if m.inUse, err = meter.Int64Gauge("respool.pool.in_use",
		metric.WithDescription("Elements currently checked out"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := defaultMetrics.GetOrInit(newOtelMetrics)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordConstruction records a factory run.
func (m *otelMetrics) RecordConstruction(ctx context.Context, component, name string, durationMs float64, err error) {
	attrs := metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("name", name),
	)

	m.constructionLatency.Record(ctx, durationMs, attrs)
	if err != nil {
		m.constructionErrors.Add(ctx, 1, attrs)
		return
	}
	m.constructions.Add(ctx, 1, attrs)
}

// RecordAcquire records a pool checkout attempt.
func (m *otelMetrics) RecordAcquire(ctx context.Context, pool string, reused bool, err error) {
	if err != nil {
		if errors.Is(err, rperrors.ErrPoolExhausted) {
			m.exhausted.Add(ctx, 1, metric.WithAttributes(attribute.String("pool", pool)))
		}
		return
	}
	m.acquires.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pool", pool),
		attribute.Bool("reused", reused),
	))
}

// RecordRelease records a pool return attempt.
func (m *otelMetrics) RecordRelease(ctx context.Context, pool string, err error) {
	attrs := metric.WithAttributes(attribute.String("pool", pool))
	if err != nil {
		m.notOwned.Add(ctx, 1, attrs)
		return
	}
	m.releases.Add(ctx, 1, attrs)
}

// RecordPoolState records the free/in-use gauges.
func (m *otelMetrics) RecordPoolState(ctx context.Context, pool string, free, inUse int) {
	attrs := metric.WithAttributes(attribute.String("pool", pool))
	m.free.Record(ctx, int64(free), attrs)
	m.inUse.Record(ctx, int64(inUse), attrs)
}
