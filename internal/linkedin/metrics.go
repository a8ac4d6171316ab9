package linkedin

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// platformCalls counts outbound LinkedIn calls by operation and outcome
	// (HTTP status code or "transport_error").
	platformCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkedin_calls_total",
			Help: "Total number of outbound LinkedIn API calls.",
		},
		[]string{"op", "outcome"},
	)

	// platformLat records outbound call duration by operation.
	platformLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "linkedin_call_duration_seconds",
			Help:    "Duration of outbound LinkedIn API calls in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(platformCalls, platformLat)
}

func observeCall(op, outcome string, d time.Duration) {
	platformCalls.WithLabelValues(op, outcome).Inc()
	platformLat.WithLabelValues(op).Observe(d.Seconds())
}
