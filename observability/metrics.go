package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by model calls and the gateway.
type Metrics struct {
	requests    metric.Int64Counter
	latency     metric.Float64Histogram
	inflight    metric.Int64UpDownCounter
	generations metric.Int64Counter
	genLatency  metric.Float64Histogram
	tokens      metric.Int64Counter
	errors      metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		ptr  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.requests, "http.request.total", "Gateway requests"},
		{&m.generations, "llm.generation.total", "Model calls"},
		{&m.tokens, "llm.tokens.total", "Prompt and completion tokens"},
		{&m.errors, "error.total", "Errors by type and component"},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.ptr = inst
	}

	histograms := []struct {
		ptr  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.latency, "http.request.duration", "Gateway request latency"},
		{&m.genLatency, "llm.generation.duration", "Model call latency"},
	}
	for _, h := range histograms {
		inst, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", h.name, err)
		}
		*h.ptr = inst
	}

	var err error
	if m.inflight, err = meter.Int64UpDownCounter("http.request.active",
		metric.WithDescription("In-flight gateway requests")); err != nil {
		return nil, fmt.Errorf("updown counter http.request.active: %w", err)
	}
	return m, nil
}

// RecordRequestStart counts a gateway request as in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.inflight.Add(ctx, 1)
}

// RecordRequestEnd releases the in-flight slot and records the outcome.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	m.inflight.Add(ctx, -1)
	methodAttr, routeAttr := attribute.String("method", method), attribute.String("route", route)
	m.requests.Add(ctx, 1, metric.WithAttributes(methodAttr, routeAttr, attribute.Int("status", status)))
	m.latency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(methodAttr, routeAttr))
}

// RecordOperation records one backend call.
func (m *Metrics) RecordOperation(ctx context.Context, model, operation, status string, elapsed time.Duration) {
	modelAttr, opAttr := attribute.String("model", model), attribute.String("operation", operation)
	m.generations.Add(ctx, 1, metric.WithAttributes(modelAttr, opAttr, attribute.String("status", status)))
	m.genLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(modelAttr, opAttr))
}

// RecordTokens adds prompt and completion token counts for model.
// Zero counts are skipped.
func (m *Metrics) RecordTokens(ctx context.Context, model string, prompt, completion int) {
	for kind, n := range map[string]int{"prompt": prompt, "completion": completion} {
		if n > 0 {
			m.tokens.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String("model", model), attribute.String("kind", kind)))
		}
	}
}

// RecordError counts an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
