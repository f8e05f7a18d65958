package lotto

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	lottoTracer   = otel.Tracer("github.com/kydenul/lotto")
	lottoNoopSpan = trace.SpanFromContext(context.Background())
)

// startSpan opens a child span only when the caller already carries a trace,
// so untraced callers pay nothing.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, lottoNoopSpan
	}
	return lottoTracer.Start(ctx, name)
}

// endSpan records err on span (if any) and ends it
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
