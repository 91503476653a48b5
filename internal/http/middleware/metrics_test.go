package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/admin-session-gateway/internal/metrics"
)

func TestMetrics_LabelsByRoutePatternAndStatus(t *testing.T) {
	r := newRouter(Metrics())
	r.Post("/session/{op}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	c := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/session/{op}", "202")
	before := testutil.ToFloat64(c)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/session/login", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	require.Equal(t, before+1, testutil.ToFloat64(c))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.HTTPRequestsInFlight))
}

func TestMetrics_HandlerWithoutWriteHeaderCountsAs200(t *testing.T) {
	r := newRouter(Metrics())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	c := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")
	before := testutil.ToFloat64(c)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestRouteLabel_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	require.Equal(t, "unmatched", routeLabel(req))
}
