// Package provider is a small generic framework for swappable backends.
//
// RequestResponse[I, O] is the one interaction pattern: one input, one
// output. Streamable adds a channel-based Stream call. Registry maps factory
// names to typed factories; Manager holds built instances and picks one with
// a Selector when the caller does not name one.
//
// Middleware wraps a RequestResponse. Intercept builds one from a plain
// function; compose with Chain:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("modelkit"),
//	)(raw)
//
// WithResilience adds rate limiting, a bulkhead, a circuit breaker and
// retry around Execute.
package provider
