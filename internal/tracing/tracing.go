package tracing

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	traceIDKey
)

// GenerateRequestID returns a new "req_"-prefixed request ID
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GenerateTraceID returns a random 32 hex digit ID shaped like an OpenTelemetry trace ID
func GenerateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetRequestID returns the request ID stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetTraceID returns the trace ID stored in ctx, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
