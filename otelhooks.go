package resil

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterHooks returns a [Hooks] that records lifecycle events as OpenTelemetry
// counters on meter. Circuit transitions share one counter distinguished by
// the "state" attribute; rejections by breaker, limiter, and bulkhead share
// the rejections counter distinguished by "reason". Counter callbacks use
// context.Background because hook callsites carry no request context.
func MeterHooks(meter metric.Meter) (*Hooks, error) {
	retries, err := meter.Int64Counter("resil.retries",
		metric.WithDescription("Retry attempts performed"))
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("resil.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"))
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("resil.rejections",
		metric.WithDescription("Calls rejected before reaching the wrapped function"))
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter("resil.timeouts",
		metric.WithDescription("Calls cancelled by the timeout pattern"))
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	transition := func(breaker, state string) {
		transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("breaker", breaker),
			attribute.String("state", state),
		))
	}

	reject := func(reason string, attrs ...attribute.KeyValue) {
		attrs = append(attrs, attribute.String("reason", reason))
		rejections.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	return &Hooks{
		OnRetry: func(attempt int, _ time.Duration, _ error) {
			retries.Add(ctx, 1, metric.WithAttributes(
				attribute.Int("attempt", attempt),
			))
		},
		OnCircuitOpen: func(breaker string) {
			transition(breaker, "open")
		},
		OnCircuitClose: func(breaker string) {
			transition(breaker, "closed")
		},
		OnCircuitHalfOpen: func(breaker string) {
			transition(breaker, "half_open")
		},
		OnCircuitReject: func(breaker string) {
			reject("circuit_open", attribute.String("breaker", breaker))
		},
		OnTimeout: func() {
			timeouts.Add(ctx, 1)
		},
		OnRateLimited: func() {
			reject("rate_limited")
		},
		OnBulkheadFull: func() {
			reject("bulkhead_full")
		},
	}, nil
}
