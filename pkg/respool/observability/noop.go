package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordConstruction does nothing.
func (NoopMetrics) RecordConstruction(_ context.Context, _, _ string, _ float64, _ error) {}

// RecordAcquire does nothing.
func (NoopMetrics) RecordAcquire(_ context.Context, _ string, _ bool, _ error) {}

// RecordRelease does nothing.
func (NoopMetrics) RecordRelease(_ context.Context, _ string, _ error) {}

// RecordPoolState does nothing.
func (NoopMetrics) RecordPoolState(_ context.Context, _ string, _, _ int) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
var noopSpan = noop.Span{}

// StartConstructSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartConstructSpan(ctx context.Context, _, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}
