package middleware

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"smsview/internal/httputil"
	"smsview/internal/metrics"
	"smsview/internal/session"
	"smsview/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Options tune the observability middleware.
type Options struct {
	// TrustProxyHeaders takes the client address from forwarding headers.
	TrustProxyHeaders bool
	// Verbose lets downstream loggers print file names and search terms.
	Verbose bool
	// QuietPaths are logged at debug level instead of info.
	QuietPaths []string
}

// ObservabilityMiddleware adds request IDs, spans, metrics and request logs
func ObservabilityMiddleware(logger *logrus.Logger, opts Options) mux.MiddlewareFunc {
	quiet := make(map[string]bool, len(opts.QuietPaths))
	for _, p := range opts.QuietPaths {
		quiet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracing.WithOtelTracing(r.Context(), "http_request")
			defer span.End()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = tracing.GenerateRequestID()
			}
			ctx = tracing.WithRequestID(ctx, requestID)
			ctx = session.WithVerbose(ctx, opts.Verbose)
			r = r.WithContext(ctx)

			route := routeLabel(r)
			clientIP := httputil.ClientIP(r, opts.TrustProxyHeaders)

			tracing.AddSpanAttributes(ctx,
				semconv.HTTPMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				attribute.String("http.host", r.Host),
				semconv.UserAgentOriginalKey.String(r.Header.Get("User-Agent")),
				semconv.ClientAddressKey.String(clientIP),
			)

			w.Header().Set("X-Request-ID", requestID)

			wrapper := &responseWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			startLevel := logrus.InfoLevel
			if quiet[r.URL.Path] {
				startLevel = logrus.DebugLevel
			}
			logger.WithFields(logrus.Fields{
				session.LogFieldRequestID: requestID,
				session.LogFieldTraceID:   tracing.GetTraceID(ctx),
				session.LogFieldMethod:    r.Method,
				session.LogFieldURL:       r.URL.Path,
				session.LogFieldRemoteIP:  clientIP,
				session.LogFieldUserAgent: r.Header.Get("User-Agent"),
				"content_length":          r.ContentLength,
			}).Log(startLevel, "HTTP request started")

			metrics.IncrementCounter(metrics.HTTPRequestsTotal, map[string]string{
				"method":   r.Method,
				"endpoint": route,
			}, "Total HTTP requests")

			metrics.IncrementCounter(metrics.HTTPRequestsActive, nil, "Currently active HTTP requests")
			defer func() {
				metrics.AddToCounter(metrics.HTTPRequestsActive, -1, nil, "Currently active HTTP requests")
			}()

			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			status := strconv.Itoa(wrapper.statusCode)

			tracing.AddSpanAttributes(ctx,
				semconv.HTTPStatusCodeKey.Int(wrapper.statusCode),
				attribute.Int64("http.response.size", wrapper.responseSize),
				attribute.Int64("http.request.duration_ms", duration.Milliseconds()),
			)
			if wrapper.statusCode >= 400 {
				tracing.SetSpanStatus(ctx, codes.Error, fmt.Sprintf("HTTP %d", wrapper.statusCode))
			} else {
				tracing.SetSpanStatus(ctx, codes.Ok, "")
			}

			metrics.RecordTimer(metrics.HTTPRequestDuration, duration, map[string]string{
				"method":      r.Method,
				"endpoint":    route,
				"status_code": status,
			}, "HTTP request duration")
			metrics.IncrementCounter(metrics.HTTPResponsesTotal, map[string]string{
				"method":      r.Method,
				"endpoint":    route,
				"status_code": status,
			}, "HTTP responses by status code")

			logLevel := logrus.InfoLevel
			switch {
			case wrapper.statusCode >= 500:
				logLevel = logrus.ErrorLevel
			case wrapper.statusCode >= 400:
				logLevel = logrus.WarnLevel
			case quiet[r.URL.Path]:
				logLevel = logrus.DebugLevel
			}

			logger.WithFields(logrus.Fields{
				session.LogFieldRequestID:  requestID,
				session.LogFieldTraceID:    tracing.GetTraceID(ctx),
				session.LogFieldMethod:     r.Method,
				session.LogFieldURL:        r.URL.Path,
				session.LogFieldStatusCode: wrapper.statusCode,
				session.LogFieldDuration:   duration.Milliseconds(),
				session.LogFieldRemoteIP:   clientIP,
				session.LogFieldSize:       wrapper.responseSize,
			}).Log(logLevel, "HTTP request completed")
		})
	}
}

// routeLabel keeps metric labels bounded by using the matched route template.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// responseWrapper captures response metrics
type responseWrapper struct {
	http.ResponseWriter
	statusCode   int
	responseSize int64
	wroteHeader  bool
}

func (rw *responseWrapper) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWrapper) Write(data []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(data)
	rw.responseSize += int64(n)
	return n, err
}

// Hijack lets WebSocket upgrades pass through the wrapper.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.wroteHeader = true
	return hj.Hijack()
}

func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
