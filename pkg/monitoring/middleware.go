package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
)

// RequestIDHeader carries the request id in and out of the API
const RequestIDHeader = "X-Request-ID"

// MonitoringMiddleware combines metrics, structured logging and optional tracing for HTTP
// and database traffic
type MonitoringMiddleware struct {
	metrics *MetricsCollector
	logger  *logger.Logger
	tracer  *Tracer
}

// NewMonitoringMiddleware creates a new monitoring middleware
func NewMonitoringMiddleware(metrics *MetricsCollector, log *logger.Logger) *MonitoringMiddleware {
	return &MonitoringMiddleware{
		metrics: metrics,
		logger:  log,
	}
}

// WithTracer returns a copy of mm that also records query spans. A nil tracer disables them.
func (mm *MonitoringMiddleware) WithTracer(t *Tracer) *MonitoringMiddleware {
	c := *mm
	c.tracer = t
	return &c
}

// Metrics returns the underlying collector
func (mm *MonitoringMiddleware) Metrics() *MetricsCollector {
	return mm.metrics
}

// HTTPMiddleware assigns a request id, then records metrics and an access log line per request
func (mm *MonitoringMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), logger.RequestIDKey, requestID)
		if traceID := TraceID(ctx); traceID != "" {
			ctx = context.WithValue(ctx, logger.TraceIDKey, traceID)
		}

		wrapper := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		wrapper.Header().Set(RequestIDHeader, requestID)

		r = r.WithContext(ctx)
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		mm.metrics.RecordHTTPRequest(r.Method, endpointLabel(r), strconv.Itoa(wrapper.statusCode), duration)

		mm.logger.HTTPRequest(
			ctx,
			r.Method,
			r.URL.Path,
			r.UserAgent(),
			r.RemoteAddr,
			wrapper.statusCode,
			duration.Milliseconds(),
		)
	})
}

// ObserveQuery records a database query. It satisfies database.Observer.
func (mm *MonitoringMiddleware) ObserveQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	mm.metrics.RecordDBQuery(operation, table, duration, err != nil)
	if mm.tracer != nil {
		mm.tracer.RecordQuery(ctx, operation, table, duration, err)
	}
	mm.logger.DatabaseOperation(ctx, operation, table, duration.Milliseconds(), err == nil, err)
}
