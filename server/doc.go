// Package server provides the HTTP gateway server: Gin behind h2c on one
// port, a standard middleware stack and health endpoints.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - RequestLogger: request logging with duration
//   - Metrics: OpenTelemetry request metrics
//   - CORS: cross-origin resource sharing
//   - RateLimit: per-client token bucket
//   - BodySizeLimit: request body size cap
//   - Auth: JWT bearer authentication
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /health, /info and /version.
package server
