// Package errors provides the structured error type shared by model adapters,
// the CLI and the HTTP gateway. Errors carry a machine-readable code, the
// HTTP status the gateway should answer with, and a retryable flag.
package errors
