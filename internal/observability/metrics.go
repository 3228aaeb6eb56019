package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	dispatchDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	bodySizeBuckets         = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Intent metrics
	IntentParsesTotal *prometheus.CounterVec
	IntentConfidence  prometheus.Histogram

	// Validation and policy metrics
	ValidationsTotal       *prometheus.CounterVec
	PolicyEvaluationsTotal *prometheus.CounterVec

	// Dispatch metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Store metrics
	SchemasLoaded        prometheus.Gauge
	SchemaDownloadsTotal *prometheus.CounterVec
	RulesStored          prometheus.Gauge
	RuleWritesTotal      *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Intent
		IntentParsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_intent_parses_total",
			Help: "Total number of parsed intents.",
		}, []string{"operation", "resolved"}),
		IntentConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stratus_intent_confidence",
			Help:    "Confidence score distribution of parsed intents.",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 1},
		}),

		// Validation and policy
		ValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_validations_total",
			Help: "Total number of schema validations.",
		}, []string{"type_name", "outcome"}),
		PolicyEvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_policy_evaluations_total",
			Help: "Total number of policy evaluations.",
		}, []string{"outcome"}),

		// Dispatch
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_dispatches_total",
			Help: "Total number of provisioning dispatches.",
		}, []string{"operation", "status"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratus_dispatch_duration_seconds",
			Help:    "Provisioning dispatch duration in seconds.",
			Buckets: dispatchDurationBuckets,
		}, []string{"operation"}),

		// Stores
		SchemasLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratus_schemas_loaded",
			Help: "Number of loaded resource type schemas.",
		}),
		SchemaDownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_schema_downloads_total",
			Help: "Total schema registry downloads.",
		}, []string{"status"}),
		RulesStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stratus_rules_stored",
			Help: "Number of stored policy rules.",
		}),
		RuleWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratus_rule_writes_total",
			Help: "Total rule store writes.",
		}, []string{"action"}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Intent
		m.IntentParsesTotal,
		m.IntentConfidence,
		// Validation and policy
		m.ValidationsTotal,
		m.PolicyEvaluationsTotal,
		// Dispatch
		m.DispatchesTotal,
		m.DispatchDuration,
		// Stores
		m.SchemasLoaded,
		m.SchemaDownloadsTotal,
		m.RulesStored,
		m.RuleWritesTotal,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordIntentParse records a parsed intent.
func (m *Metrics) RecordIntentParse(operation string, resolved bool, confidence float64) {
	m.IntentParsesTotal.WithLabelValues(operation, strconv.FormatBool(resolved)).Inc()
	m.IntentConfidence.Observe(confidence)
}

// RecordValidation records a schema validation outcome.
func (m *Metrics) RecordValidation(typeName string, valid bool) {
	m.ValidationsTotal.WithLabelValues(typeName, outcomeLabel(valid)).Inc()
}

// RecordPolicyEvaluation records a policy evaluation outcome.
func (m *Metrics) RecordPolicyEvaluation(valid bool) {
	m.PolicyEvaluationsTotal.WithLabelValues(outcomeLabel(valid)).Inc()
}

// RecordDispatch records a provisioning dispatch.
func (m *Metrics) RecordDispatch(operation, status string, duration time.Duration) {
	m.DispatchesTotal.WithLabelValues(operation, status).Inc()
	m.DispatchDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetSchemasLoaded sets the number of loaded schemas.
func (m *Metrics) SetSchemasLoaded(count float64) {
	m.SchemasLoaded.Set(count)
}

// RecordSchemaDownload records a schema registry download.
func (m *Metrics) RecordSchemaDownload(status string) {
	m.SchemaDownloadsTotal.WithLabelValues(status).Inc()
}

// SetRulesStored sets the number of stored rules.
func (m *Metrics) SetRulesStored(count float64) {
	m.RulesStored.Set(count)
}

// RecordRuleWrite records a rule store write.
func (m *Metrics) RecordRuleWrite(action string) {
	m.RuleWritesTotal.WithLabelValues(action).Inc()
}

func outcomeLabel(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
