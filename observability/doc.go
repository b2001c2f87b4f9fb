// Package observability wires OpenTelemetry tracing and metrics.
//
// Export is opt-in through Config.Enabled. Without it, the global otel
// providers stay no-op and every helper here is safe to call.
//
//	shutdown, err := observability.Setup(ctx, cfg.Observability, "modelkit", version.GetVersionInfo().Version, "production")
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanGenerate,
//		observability.AttrModel.String("qwen"))
//	defer func() { observability.EndSpan(span, err) }()
//
//	metrics, _ := observability.NewMetrics(observability.Meter("modelkit"))
//	metrics.RecordTokens(ctx, "qwen", 120, 48)
package observability
