// metrics — коллекторы Prometheus шлюза. Регистрируются в реестре по умолчанию
// (promauto) и отдаются через promhttp на /metrics.
//
// HTTP-мидлвар, который их наполняет, живёт в internal/http/middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session_gateway"

// Исходы операций сессии (label outcome).
const (
	OutcomeOK                = "ok"
	OutcomeMFARequired       = "mfa_required"
	OutcomeRejected          = "rejected"
	OutcomeInvalid           = "invalid"
	OutcomeUnauthenticated   = "unauthenticated"
	OutcomeContractViolation = "contract_violation"
	OutcomeTransportError    = "transport_error"
)

// Входящие HTTP-запросы.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	// HTTPPanicsTotal — паники хендлеров, перехваченные middleware.Recover.
	HTTPPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Handler panics recovered by the gateway",
		},
		[]string{"route"},
	)
)

// Операции сессии и вызовы апстрима.
var (
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream auth API latency distribution",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"path", "status_code"},
	)
)

// SessionEvent увеличивает счётчик session_events_total.
func SessionEvent(op, outcome string) {
	SessionEventsTotal.WithLabelValues(op, outcome).Inc()
}
