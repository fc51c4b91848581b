package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the orchestrator's OpenTelemetry instruments. Every
// operation records an outcome and a duration; circuit transitions and
// admission rejections get their own counters.
type metrics struct {
	operations  metric.Int64Counter
	duration    metric.Float64Histogram
	rejected    metric.Int64Counter
	transitions metric.Int64Counter
	active      metric.Int64UpDownCounter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	operations, err := meter.Int64Counter(
		"legalops.operations.total",
		metric.WithDescription("Total operations executed through the resilience layer"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"legalops.operation.duration_seconds",
		metric.WithDescription("End-to-end operation duration including retries and fallbacks"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter(
		"legalops.operations.rejected",
		metric.WithDescription("Operations rejected by admission control"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"legalops.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter(
		"legalops.operations.active",
		metric.WithDescription("Operations currently in flight"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		operations:  operations,
		duration:    duration,
		rejected:    rejected,
		transitions: transitions,
		active:      active,
	}, nil
}

func (m *metrics) recordOperation(ctx context.Context, dependency, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("status", status),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("dependency", dependency)))
}

func (m *metrics) recordRejection(ctx context.Context, dependency string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("dependency", dependency)))
}

func (m *metrics) recordTransition(dependency, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("dependency", dependency),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metrics) addActive(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.active.Add(ctx, delta)
}
