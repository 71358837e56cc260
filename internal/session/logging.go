package session

import (
	"context"

	"smsview/internal/privacy"

	"github.com/sirupsen/logrus"
)

// Standard field names shared by every log call
const (
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"
	LogFieldGeneration = "generation"
	LogFieldFileName   = "file_name"
	LogFieldSize       = "size_bytes"
	LogFieldDigest     = "digest"
	LogFieldCount      = "count"
	LogFieldStatus     = "status"
	LogFieldDuration   = "duration_ms"
	LogFieldErrorCode  = "error_code"
	LogFieldTerm       = "term"

	LogFieldMethod     = "method"
	LogFieldURL        = "url"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
	LogFieldComponent  = "component"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey marks a context whose logs may include file names and terms
const VerboseContextKey ContextKey = "verbose"

// WithVerbose returns a context carrying the verbose logging flag
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// SafeFields masks personal values unless the context asks for verbose logs
func SafeFields(ctx context.Context, fields logrus.Fields) logrus.Fields {
	if IsVerboseLogging(ctx) {
		return fields
	}
	return logrus.Fields(privacy.MaskSensitiveFields(fields))
}
