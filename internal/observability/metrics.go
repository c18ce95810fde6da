package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the console.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	listLoads       *prometheus.CounterVec
	mountedViews    *prometheus.GaugeVec
	prefChanges     *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec
}

// NewMetrics initialises the registry and the console collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatrix_console_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatrix_console_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatrix_console_list_loads_total",
		Help: "List reloads by list and outcome (applied, stale, error, closed).",
	}, []string{"list", "outcome"})
	views := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gatrix_console_mounted_views",
		Help: "Mounted list views by list.",
	}, []string{"list"})
	prefs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatrix_console_pref_changes_total",
		Help: "Preference change signals received, by list.",
	}, []string{"list"})
	backendErrs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatrix_console_backend_errors_total",
		Help: "Failed backend mutations by list and operation.",
	}, []string{"list", "op"})
	registry.MustRegister(requests, duration, loads, views, prefs, backendErrs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		listLoads:       loads,
		mountedViews:    views,
		prefChanges:     prefs,
		backendErrors:   backendErrs,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveListLoad counts one reload outcome.
func (m *Metrics) ObserveListLoad(list, outcome string) {
	if m == nil {
		return
	}
	m.listLoads.WithLabelValues(list, outcome).Inc()
}

// SetMountedViews reports the number of mounted views of list.
func (m *Metrics) SetMountedViews(list string, n int) {
	if m == nil {
		return
	}
	m.mountedViews.WithLabelValues(list).Set(float64(n))
}

// ObservePrefChange counts a preference change signal.
func (m *Metrics) ObservePrefChange(list string) {
	if m == nil {
		return
	}
	m.prefChanges.WithLabelValues(list).Inc()
}

// ObserveBackendError counts a failed mutation.
func (m *Metrics) ObserveBackendError(list, op string) {
	if m == nil {
		return
	}
	m.backendErrors.WithLabelValues(list, op).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
