package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelpadega_cache_lookups_total",
			Help: "Total number of cache lookups by backend and result",
		},
		[]string{"backend", "result"},
	)

	CacheWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelpadega_cache_write_errors_total",
			Help: "Total number of failed cache writes by backend",
		},
		[]string{"backend"},
	)

	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelpadega_upstream_attempts_total",
			Help: "Total number of upstream HTTP attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	AICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelpadega_ai_calls_total",
			Help: "Total number of AI provider calls by analysis kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelpadega_ai_call_duration_seconds",
			Help:    "Duration of AI provider calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"kind"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelpadega_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "labelpadega_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route"},
	)

	Sessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "labelpadega_chat_sessions",
			Help: "Number of live chat sessions",
		},
	)
)

// Outcome labels shared by counters
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
	ResultHit      = "hit"
	ResultMiss     = "miss"
)
