package monitoring

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles Prometheus metrics collection. Each collector owns its
// registry so that several can coexist in one process.
type MetricsCollector struct {
	serviceName string
	registry    *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	dbQueryDuration     *prometheus.HistogramVec
	dbQueryErrors       *prometheus.CounterVec
	authAttemptsTotal   *prometheus.CounterVec
	tenantDenialsTotal  *prometheus.CounterVec
	eventsTotal         *prometheus.CounterVec
	externalCalls       *prometheus.HistogramVec
	systemErrors        *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	m := &MetricsCollector{
		serviceName: serviceName,
		registry:    prometheus.NewRegistry(),

		// HTTP request metrics
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code", "service"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "service"},
		),

		// Database metrics
		dbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"operation", "table", "service"},
		),
		dbQueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_query_errors_total",
				Help: "Total number of failed database queries",
			},
			[]string{"operation", "table", "service"},
		),

		// Authentication and tenancy metrics
		authAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Total number of bearer token verifications",
			},
			[]string{"status", "service"},
		),
		tenantDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenant_denials_total",
				Help: "Total number of requests rejected during organization resolution",
			},
			[]string{"reason", "service"},
		),

		// Event bus metrics
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_total",
				Help: "Total number of events by delivery outcome",
			},
			[]string{"event_type", "outcome", "service"},
		),

		// Outbound service metrics
		externalCalls: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_call_duration_seconds",
				Help:    "Duration of calls to external services in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"target", "operation", "status", "service"},
		),

		// System metrics
		systemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "system_errors_total",
				Help: "Total number of system errors",
			},
			[]string{"error_type", "service", "component"},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dbQueryDuration,
		m.dbQueryErrors,
		m.authAttemptsTotal,
		m.tenantDenialsTotal,
		m.eventsTotal,
		m.externalCalls,
		m.systemErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the collector's registry, mainly for tests
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordDBQuery records database query metrics
func (m *MetricsCollector) RecordDBQuery(operation, table string, duration time.Duration, failed bool) {
	m.dbQueryDuration.WithLabelValues(operation, table, m.serviceName).Observe(duration.Seconds())
	if failed {
		m.dbQueryErrors.WithLabelValues(operation, table, m.serviceName).Inc()
	}
}

// RecordAuthAttempt records a bearer token verification outcome
func (m *MetricsCollector) RecordAuthAttempt(status string) {
	m.authAttemptsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordTenantDenial records a request rejected because no organization could be resolved
func (m *MetricsCollector) RecordTenantDenial(reason string) {
	m.tenantDenialsTotal.WithLabelValues(reason, m.serviceName).Inc()
}

// RecordEvent records an event delivery outcome: published, dropped, delivered or failed
func (m *MetricsCollector) RecordEvent(eventType, outcome string) {
	m.eventsTotal.WithLabelValues(eventType, outcome, m.serviceName).Inc()
}

// RecordExternalCall records a call to the AI service or the CRM
func (m *MetricsCollector) RecordExternalCall(target, operation, status string, duration time.Duration) {
	m.externalCalls.WithLabelValues(target, operation, status, m.serviceName).Observe(duration.Seconds())
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	m.systemErrors.WithLabelValues(errorType, m.serviceName, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// endpointLabel prefers the matched route template to keep label cardinality bounded
func endpointLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
