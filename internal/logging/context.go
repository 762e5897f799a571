package logging

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxIDLen = 128

type sessionCtxKey struct{}
type requestCtxKey struct{}
type toolCtxKey struct{}
type loggerCtxKey struct{}

// ContextFields extracts correlation data from ctx: the active span, the
// reasoning session, the MCP tool and the HTTP request ID.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("session.id", id))
	}
	if tool := ToolFromContext(ctx); tool != "" {
		fields = append(fields, zap.String("mcp.tool", tool))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

// sanitizeID trims id and caps it at maxIDLen bytes. Session IDs come from
// MCP clients verbatim, so invalid UTF-8 yields "".
func sanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if !utf8.ValidString(id) {
		return ""
	}
	if len(id) > maxIDLen {
		id = id[:maxIDLen]
		for !utf8.ValidString(id) {
			id = id[:len(id)-1]
		}
	}
	return id
}

// WithSessionID records the reasoning session for log correlation. Empty or
// invalid IDs leave ctx unchanged.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if id := sanitizeID(sessionID); id != "" {
		return context.WithValue(ctx, sessionCtxKey{}, id)
	}
	return ctx
}

// SessionIDFromContext extracts the session ID from ctx.
func SessionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionCtxKey{}).(string)
	return s
}

// WithRequestID records an HTTP request ID. Empty or invalid IDs leave ctx
// unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if id := sanitizeID(requestID); id != "" {
		return context.WithValue(ctx, requestCtxKey{}, id)
	}
	return ctx
}

// RequestIDFromContext extracts the request ID from ctx.
func RequestIDFromContext(ctx context.Context) string {
	r, _ := ctx.Value(requestCtxKey{}).(string)
	return r
}

// WithTool records the MCP tool being served.
func WithTool(ctx context.Context, tool string) context.Context {
	if tool == "" {
		return ctx
	}
	return context.WithValue(ctx, toolCtxKey{}, tool)
}

// ToolFromContext extracts the MCP tool name from ctx.
func ToolFromContext(ctx context.Context) string {
	t, _ := ctx.Value(toolCtxKey{}).(string)
	return t
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves the logger stored by WithLogger, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
