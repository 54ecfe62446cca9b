// Package metrics holds the engine's Prometheus collectors. They register
// with the default registry and are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll cycle metrics
var (
	// CyclesTotal counts poll cycles by result (ok, aborted, busy).
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internflow_cycles_total",
			Help: "Poll cycles by result",
		},
		[]string{"result"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "internflow_cycle_duration_seconds",
			Help:    "Poll cycle duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// MessagesTotal counts inbound messages by outcome
	// (recorded, duplicate, unmatched, decode_error, store_error).
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internflow_messages_total",
			Help: "Inbound messages by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	// FollowUpsTotal counts follow-up queue entries by action
	// (notified, advanced, skipped, error).
	FollowUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internflow_followups_total",
			Help: "Follow-up handling by action",
		},
		[]string{"action"},
	)

	ClassifierFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "internflow_classifier_fallbacks_total",
			Help: "Classifier errors that fell back to Neutral",
		},
	)

	// CircuitBreakerState is 0=closed, 1=half-open, 2=open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "internflow_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Scrape metrics
var (
	JobPostsScraped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internflow_job_posts_scraped_total",
			Help: "Scraped job posts by source and result (added, duplicate)",
		},
		[]string{"source", "result"},
	)

	ScrapeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internflow_scrape_errors_total",
			Help: "Failed scrape requests by source",
		},
		[]string{"source"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "internflow_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "internflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
