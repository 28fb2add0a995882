// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InboundOutcomeCount counts inbound deliveries by terminal outcome.
	InboundOutcomeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_email_outcome_total",
			Help: "Total inbound email deliveries by pipeline outcome",
		},
		[]string{"outcome"},
	)

	// ClassifyDuration tracks rule-engine classification latency.
	ClassifyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_classification_duration_seconds",
			Help:    "Email classification duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"category"},
	)

	// EvictedEmails counts records removed by the store's eviction sweep.
	EvictedEmails = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbound_emails_evicted_total",
			Help: "Total inbound email records removed by eviction",
		},
	)

	// HTTPRequestDuration tracks webhook endpoint latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// IncrementOutcome records one pipeline outcome
func IncrementOutcome(outcome string) {
	InboundOutcomeCount.WithLabelValues(outcome).Inc()
}

// ObserveClassifyDuration records one classification latency sample
func ObserveClassifyDuration(category string, d time.Duration) {
	ClassifyDuration.WithLabelValues(category).Observe(d.Seconds())
}

// AddEvicted records records removed by an eviction sweep
func AddEvicted(n int) {
	if n > 0 {
		EvictedEmails.Add(float64(n))
	}
}

// ObserveHTTPRequest records one HTTP request latency sample
func ObserveHTTPRequest(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}
