// Package metrics instruments the mission engine with Prometheus
// collectors. All methods are nil-safe so callers can run without
// instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	missionRuns     *prometheus.CounterVec
	runDuration     prometheus.Histogram
	acquireFailures *prometheus.CounterVec
	activeHandles   *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New builds and registers all collectors on a fresh registry so repeated
// construction (one per session, one per test) never collides.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		missionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mission_runs_total",
			Help: "Total mission runs by terminal outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mission_run_duration_seconds",
			Help:    "Histogram of wall-clock mission run durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		acquireFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensor_acquire_failures_total",
			Help: "Total sensor acquisition failures by sensor kind.",
		}, []string{"kind"}),
		activeHandles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sensor_active_handles",
			Help: "Live sensor handles held by the session registry (0 or 1 per kind).",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.missionRuns,
		m.runDuration,
		m.acquireFailures,
		m.activeHandles,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// MissionRun records one completed run with its terminal outcome label.
func (m *Metrics) MissionRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.missionRuns.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// AcquireFailure records one sensor acquisition failure.
func (m *Metrics) AcquireFailure(kind string) {
	if m == nil {
		return
	}
	m.acquireFailures.WithLabelValues(kind).Inc()
}

// HandleActive tracks the registry's live handle for a sensor kind.
func (m *Metrics) HandleActive(kind string, active bool) {
	if m == nil {
		return
	}
	v := 0.0
	if active {
		v = 1.0
	}
	m.activeHandles.WithLabelValues(kind).Set(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler instruments an HTTP route with request count and duration.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
