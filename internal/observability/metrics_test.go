package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAction("approve", "success", time.Second)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fieldops_material_actions_total")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("/test", "418")))

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(metricsRR.Body.String(), `fieldops_http_request_duration_seconds_bucket{route="/test"`))
}

func TestObserveActionAndCatalogLookups(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAction("deliver", "success", 20*time.Millisecond)
	metrics.ObserveAction("deliver", "success", 30*time.Millisecond)
	metrics.ObserveAction("reject", "invalid", 0)
	metrics.ObserveCatalogLookup("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.actionsTotal.WithLabelValues("deliver", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.actionsTotal.WithLabelValues("reject", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.catalogLookups.WithLabelValues("hit")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.actionDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveAction("approve", "success", time.Second)
	metrics.ObserveCatalogLookup("miss")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
