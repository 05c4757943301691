// Package metrics exposes Prometheus metrics for the HTTP service and the
// validation pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several servers can coexist in one
// process (tests).
type Metrics struct {
	registry *prometheus.Registry

	reqDuration    *prometheus.HistogramVec
	outcomes       *prometheus.CounterVec
	lookupDegraded prometheus.Counter
	rateLimited    prometheus.Counter
}

// New creates the collectors and registers them along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: []float64{0.01, 0.1, 0.3, 1.2, 5},
			},
			[]string{"path", "method", "status"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emailvalidate_validations_total",
				Help: "Validation results by outcome.",
			},
			[]string{"outcome"},
		),
		lookupDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emailvalidate_disposable_lookup_degraded_total",
			Help: "Disposable lookups that failed and were treated as not disposable.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "emailvalidate_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reqDuration,
		m.outcomes,
		m.lookupDegraded,
		m.rateLimited,
	)
	return m
}

// ObserveOutcome counts one pipeline result.
func (m *Metrics) ObserveOutcome(outcome string, lookupDegraded bool) {
	m.outcomes.WithLabelValues(outcome).Inc()
	if lookupDegraded {
		m.lookupDegraded.Inc()
	}
}

// ObserveRateLimited counts one rejected request.
func (m *Metrics) ObserveRateLimited() {
	m.rateLimited.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// HTTPMetrics is a middleware that records request duration, labelled by
// chi route pattern rather than raw path to keep label cardinality bounded.
func (m *Metrics) HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		m.reqDuration.WithLabelValues(path, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
