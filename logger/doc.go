// Package logger provides zerolog-backed structured logging.
//
// Logs go to stderr by default so that generated text written to stdout by
// the CLI is never interleaved with log lines.
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// Usage:
//
//	log := logger.Get("models")
//	log.Info("generated", logger.Fields("model", "qwen", "tokens", 42))
package logger
