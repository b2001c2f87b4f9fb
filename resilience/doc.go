// Package resilience holds the fault-tolerance policies applied around model
// backend calls: retry with exponential or fixed backoff, a token-bucket rate
// limiter, a circuit breaker and a concurrency bulkhead.
//
// Backends that answer 429 are retried on a fixed interval:
//
//	cfg := resilience.FixedRetryConfig(3, 12*time.Second, httpclient.IsRateLimit)
//	out, err := resilience.Retry(ctx, cfg, call)
package resilience
