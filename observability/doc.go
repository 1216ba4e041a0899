// Package observability wires OpenTelemetry tracing and metrics export.
//
// A service installs both providers from its telemetry section and flushes
// them on exit:
//
//	shutdown, err := observability.Setup(ctx, cfg.Telemetry, "prefetch-digest", version.Short(), cfg.Environment)
//	defer shutdown(ctx)
//
// Passes over a dataset are traced and counted:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPass)
//	defer span.End()
//	observability.SetSpanAttribute(ctx, observability.AttrPass, n)
//
//	pm, err := observability.NewPassMetrics(observability.Meter("prefetch-digest"))
//	pm.RecordPass(ctx, "events", records, bytes, elapsed, nil)
package observability
