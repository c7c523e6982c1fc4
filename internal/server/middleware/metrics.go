package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/core"
	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
)

// statusRecorder remembers what the handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func wrapWriter(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// routeLabel keeps label cardinality bounded: the matched chi pattern when
// there is one, a fixed set of known paths otherwise.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	switch path := r.URL.Path; path {
	case "/health", "/health/live", "/health/ready":
		return "/health/*"
	case "/", "/version", "/metrics", "/v1/documents", "/v1/gate", "/v1/submissions":
		return path
	default:
		return "/unknown"
	}
}

// errorClass groups failed statuses for http_errors_total.
func errorClass(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "throttled"
	case status == apperrors.StatusClientClosed:
		return "client_closed"
	case status >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

// RequestMetrics records request counts and latency per route. Document
// submissions also carry the outcome kind the handler reported, so the
// registry's verdicts show up next to the HTTP statuses.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := wrapWriter(w)
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeLabel(r)
		status := strconv.Itoa(rec.status)
		outcome := rec.Header().Get(apperrors.OutcomeKindHeader)

		if sys := observability.TelemetrySystem; sys != nil {
			_ = sys.Histogram("http_request_duration_ms", elapsed, map[string]string{
				"method":   r.Method,
				"endpoint": route,
				"status":   status,
			})

			counted := map[string]string{
				"method":   r.Method,
				"endpoint": route,
				"status":   status,
			}
			if outcome != "" {
				counted["outcome"] = outcome
			}
			_ = sys.Counter("http_requests_total", 1, counted)

			if r.ContentLength > 0 {
				_ = sys.Gauge("http_request_size_bytes", float64(r.ContentLength), map[string]string{
					"method":   r.Method,
					"endpoint": route,
				})
			}

			if rec.status >= 400 {
				_ = sys.Counter("http_errors_total", 1, map[string]string{
					"method":     r.Method,
					"endpoint":   route,
					"status":     status,
					"error_type": errorClass(rec.status),
				})
			}
		}

		logger := observability.ServerLogger
		if logger == nil {
			return
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("endpoint", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.Int64("response_size", rec.written),
			zap.String("request_id", core.RequestID(r.Context())),
		}
		if outcome != "" {
			fields = append(fields,
				zap.String("outcome", outcome),
				zap.String("submission_id", rec.Header().Get("X-Submission-ID")))
		}
		switch route {
		case "/health/*", "/metrics":
			logger.Debug("HTTP request completed", fields...)
		default:
			logger.Info("HTTP request completed", fields...)
		}
	})
}
