package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the hub.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session lifecycle metrics
	SessionsCreatedTotal      prometheus.Counter
	StateTransitionsTotal     *prometheus.CounterVec
	SessionTimeoutsTotal      prometheus.Counter
	InvalidStateAccessesTotal *prometheus.CounterVec
	TransitionConflictsTotal  prometheus.Counter

	// Session store metrics
	StoreOperationDuration *prometheus.HistogramVec
	StoreErrorsTotal       *prometheus.CounterVec

	// Matching leg metrics
	MatchRequestsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all hub metrics. A nil registry gets
// a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verihub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verihub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verihub_sessions_created_total",
				Help: "Total number of sessions admitted",
			},
		),
		StateTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verihub_state_transitions_total",
				Help: "Total number of committed state transitions",
			},
			[]string{"from", "to"},
		),
		SessionTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verihub_session_timeouts_total",
				Help: "Total number of sessions lazily converted to timeout",
			},
		),
		InvalidStateAccessesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verihub_invalid_state_accesses_total",
				Help: "Total number of protocol-sequencing errors",
			},
			[]string{"expected", "actual"},
		),
		TransitionConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verihub_transition_conflicts_total",
				Help: "Total number of concurrent transition conflicts",
			},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verihub_store_operation_duration_seconds",
				Help:    "Session store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verihub_store_errors_total",
				Help: "Total number of session store errors",
			},
			[]string{"operation"},
		),
		MatchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verihub_match_requests_total",
				Help: "Total number of attribute queries built for the matching service",
			},
			[]string{"dataset"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SessionsCreatedTotal,
		m.StateTransitionsTotal,
		m.SessionTimeoutsTotal,
		m.InvalidStateAccessesTotal,
		m.TransitionConflictsTotal,
		m.StoreOperationDuration,
		m.StoreErrorsTotal,
		m.MatchRequestsTotal,
	)

	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments an HTTP handler with request count and
// duration metrics. The route template must be passed by the router so
// path cardinality stays bounded.
func (m *Metrics) Middleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObserveStoreOperation times one store call.
func (m *Metrics) ObserveStoreOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
