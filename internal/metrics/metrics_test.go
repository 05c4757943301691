package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOutcome(t *testing.T) {
	m := New()
	m.ObserveOutcome("VALID", false)
	m.ObserveOutcome("VALID", true)
	m.ObserveOutcome("BLACKLISTED", false)
	m.ObserveRateLimited()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("VALID")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("BLACKLISTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookupDegraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
}

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.HTTPMetrics)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_request_duration_seconds_count{method="GET",path="/health",status="200"} 1`)
}
