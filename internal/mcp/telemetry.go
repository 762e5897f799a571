package mcp

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/thinkd/internal/chain"
)

// Tracer returns the tracer for tool spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// startToolSpan opens the span covering one tool call.
func startToolSpan(ctx context.Context, tool, sessionID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "mcp."+tool,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mcp.tool", tool),
			attribute.String("thinkd.session_id", sessionID),
		),
	)
}

// recordSpanError attaches err to the span and marks it failed. Advisory
// confidence findings never reach here.
func recordSpanError(span trace.Span, err error) {
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("error.kind", string(chain.KindOf(err)))}
	var ce *chain.Error
	if errors.As(err, &ce) {
		attrs = append(attrs, attribute.String("error.code", ce.Code))
		if ce.Ref > 0 {
			attrs = append(attrs, attribute.Int("error.ref", ce.Ref))
		}
	}
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
