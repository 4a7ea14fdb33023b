package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes by classification. Paths are deliberately not a label:
// report and user paths embed ids and would explode cardinality.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertme_client_requests_total",
		Help: "Outbound API requests by method and outcome.",
	}, []string{"method", "outcome"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alertme_client_request_duration_seconds",
		Help:    "Outbound API request latency, successful or not.",
		Buckets: prometheus.DefBuckets,
	})
)

func observe(method string, kind Kind, seconds float64) {
	outcome := "success"
	if kind != "" {
		outcome = string(kind)
	}
	requestsTotal.WithLabelValues(method, outcome).Inc()
	requestDuration.Observe(seconds)
}
