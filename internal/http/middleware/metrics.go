package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pribylovaa/admin-session-gateway/internal/metrics"
)

// Metrics считает запросы, латентность и запросы в полёте по шаблону маршрута.
func Metrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			rec := record(w)
			start := time.Now()
			next.ServeHTTP(rec, r)

			// Шаблон известен только после маршрутизации.
			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.statusCode())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
