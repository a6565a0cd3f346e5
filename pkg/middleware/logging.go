package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/sentencing-etl/pkg/composables"
	"github.com/iota-uz/sentencing-etl/pkg/httpapi"
)

type LoggerOptions struct {
	LogRequestBody  bool
	LogResponseBody bool
	// Bodies longer than MaxBodyLength bytes are logged truncated.
	MaxBodyLength int

	RequestIDHeader string
	RealIPHeader    string
	Repanic         bool
}

func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		LogRequestBody:  true,
		LogResponseBody: true,
		MaxBodyLength:   512,
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
	}
}

var redactedHeaders = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
}

type responseCaptureWriter struct {
	http.ResponseWriter
	statusCode    int
	statusWritten bool
	body          *bytes.Buffer
}

func (w *responseCaptureWriter) WriteHeader(code int) {
	if !w.statusWritten {
		w.statusCode = code
		w.statusWritten = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *responseCaptureWriter) Status() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	if !w.statusWritten {
		w.WriteHeader(http.StatusOK)
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseCaptureWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *responseCaptureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}

func headerOr(r *http.Request, name, fallback string) string {
	if name != "" {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return fallback
}

var tracer = otel.Tracer("sentencing-etl/middleware")

// TracedMiddleware opens a child span named after the middleware that follows it.
func TracedMiddleware(name string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(
				r.Context(),
				"middleware."+name,
				trace.WithAttributes(attribute.String("middleware.name", name)),
			)
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func formatHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) == 0 {
			continue
		}
		if _, ok := redactedHeaders[http.CanonicalHeaderKey(key)]; ok {
			headers[key] = "[redacted]"
			continue
		}
		headers[key] = values[0]
	}
	return headers
}

func truncate(b []byte, limit int) string {
	if limit > 0 && len(b) > limit {
		return string(b[:limit]) + "...(truncated)"
	}
	return string(b)
}

// bodyField returns the parsed JSON body, or the raw text when it is not JSON.
func bodyField(b []byte, contentType string, limit int) any {
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		var parsed any
		if err := json.Unmarshal(b, &parsed); err == nil && (limit <= 0 || len(b) <= limit) {
			return parsed
		}
	}
	return truncate(b, limit)
}

// WithLogger opens the root span of each request, puts a request scoped
// logger and request id in the context and logs the request and response.
// Panics are logged and answered with a JSON 500.
func WithLogger(logger *logrus.Logger, opts LoggerOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := headerOr(r, opts.RequestIDHeader, "")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ip := headerOr(r, opts.RealIPHeader, r.RemoteAddr)

			fieldsLogger := logger.WithFields(logrus.Fields{
				"request-id": requestID,
				"path":       r.URL.Path,
				"method":     r.Method,
			})
			fieldsLogger.WithFields(logrus.Fields{
				"host":            r.Host,
				"ip":              ip,
				"user-agent":      r.UserAgent(),
				"request-headers": formatHeaders(r.Header),
			}).Info("request started")

			if opts.LogRequestBody && r.Body != nil && r.Method != http.MethodGet {
				body, err := io.ReadAll(r.Body)
				if err != nil {
					fieldsLogger.WithError(err).Error("failed to read request-body")
					_ = httpapi.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to read request body", &httpapi.Meta{RequestID: requestID, Path: r.URL.Path})
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				fieldsLogger.WithField("request-body", bodyField(body, r.Header.Get("Content-Type"), opts.MaxBodyLength)).Info("request-body captured")
			}

			propagator := propagation.TraceContext{}
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(
				ctx,
				"http.request",
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.route", r.URL.Path),
					attribute.String("http.user_agent", r.UserAgent()),
					attribute.String("http.request_id", requestID),
					attribute.String("net.peer.ip", ip),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.HasTraceID() {
				w.Header().Set("X-Trace-Id", sc.TraceID().String())
				fieldsLogger = fieldsLogger.WithField("trace-id", sc.TraceID().String())
			}
			w.Header().Set("X-Request-Id", requestID)

			ctx = composables.WithLogger(ctx, fieldsLogger)
			ctx = composables.WithRequestID(ctx, requestID)

			wrapped := &responseCaptureWriter{ResponseWriter: w, body: &bytes.Buffer{}}

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				fieldsLogger.WithFields(logrus.Fields{
					"panic":    recovered,
					"stack":    string(debug.Stack()),
					"duration": time.Since(start),
				}).Error("panic recovered in request handler")
				span.SetAttributes(attribute.Int("http.status_code", http.StatusInternalServerError))
				if !wrapped.statusWritten {
					_ = httpapi.WriteError(wrapped, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error",
						&httpapi.Meta{RequestID: requestID, Path: r.URL.Path})
				}
				if opts.Repanic {
					panic(recovered)
				}
			}()

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			status := wrapped.Status()
			duration := time.Since(start)
			entry := fieldsLogger.WithFields(logrus.Fields{
				"duration":     duration,
				"status-code":  status,
				"status-class": status / 100,
			})
			if opts.LogResponseBody {
				entry = entry.WithField("response-body", bodyField(wrapped.body.Bytes(), wrapped.Header().Get("Content-Type"), opts.MaxBodyLength))
			}
			entry.Info("request completed")

			span.SetAttributes(
				attribute.Int64("http.request_duration_ms", duration.Milliseconds()),
				attribute.Int("http.status_code", status),
			)
		})
	}
}
