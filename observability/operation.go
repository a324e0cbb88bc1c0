package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one terminal operation: a span plus the counts recorded
// when it ends.
type Operation struct {
	name     string
	start    time.Time
	span     trace.Span
	metrics  *Metrics
	elements int64
	bytes    int64
}

// StartOperation opens a span named name. A nil metrics skips metric
// recording.
func StartOperation(ctx context.Context, name string, metrics *Metrics, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(
		append([]attribute.KeyValue{attribute.String(AttrOperation, name)}, attrs...)...,
	))
	return ctx, &Operation{name: name, start: time.Now(), span: span, metrics: metrics}
}

// AddElements adds n to the element count.
func (o *Operation) AddElements(n int64) { o.elements += n }

// AddBytes adds n to the byte count.
func (o *Operation) AddBytes(n int64) { o.bytes += n }

// Duration returns the time since the operation started.
func (o *Operation) Duration() time.Duration { return time.Since(o.start) }

// End closes the span and records the operation. err marks it failed.
func (o *Operation) End(ctx context.Context, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		o.span.RecordError(err)
	}
	duration := o.Duration()
	o.span.SetAttributes(
		attribute.Int64(AttrElements, o.elements),
		attribute.Int64(AttrBytes, o.bytes),
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	o.span.End()

	if o.metrics != nil {
		o.metrics.RecordOperation(ctx, o.name, status, o.elements, o.bytes, duration)
	}
}
