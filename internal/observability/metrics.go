package observability

import "github.com/prometheus/client_golang/prometheus"

// unmatchedRoute labels every request outside the registered routes.
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querychat_http_requests_total",
			Help: "HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// Chat completions wait on several oracle calls, so buckets reach past a minute.
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querychat_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"method", "route"},
	)

	httpInFlightRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "querychat_http_in_flight_requests",
		Help: "Requests currently being served, streaming ones included.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDurationSeconds, httpInFlightRequests)
}
