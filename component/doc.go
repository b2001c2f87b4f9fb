// Package component defines lifecycle-managed parts of a modelkit process:
// the model catalog, the HTTP gateway and the telemetry exporters.
//
// A Registry starts components in registration order and stops them in
// reverse, so register dependencies first.
package component
