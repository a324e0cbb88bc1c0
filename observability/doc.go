// Package observability provides OpenTelemetry tracing and metrics for
// pipeline terminal operations.
//
// Applications that export telemetry install the OTLP providers once:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultConfig("my-service"))
//	defer mp.Shutdown(ctx)
//
// Terminals wrap their work in an Operation:
//
//	ctx, op := observability.StartOperation(ctx, "stream.ToList", observability.DefaultMetrics())
//	op.AddElements(n)
//	op.End(ctx, err)
package observability
