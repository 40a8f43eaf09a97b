// Package metrics holds the Prometheus collectors of the accounts service.
// All metrics use the "accounts" namespace and are registered with the default
// registry via promauto, so they are served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// Auth operation results.
const (
	ResultSuccess     = "success"
	ResultInvalid     = "invalid"
	ResultExpired     = "expired"
	ResultReused      = "reused"
	ResultRateLimited = "rate_limited"
	ResultError       = "error"
)

var (
	// AuthOperationsTotal counts login, refresh and logout calls by result.
	AuthOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Total number of session operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// TokenReuseDetectedTotal counts presentations of an already rotated or logged out refresh token.
	TokenReuseDetectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_reuse_detected_total",
			Help:      "Total number of refresh token reuse detections.",
		},
	)

	RevokedTokensPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "revoked_tokens_purged_total",
			Help:      "Total number of expired revocation records deleted.",
		},
	)

	SweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "failures_total",
			Help:      "Total number of failed revocation sweeps.",
		},
	)

	// HTTPRequestDuration tracks request latency by route pattern, method and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_requests_total",
			Help:      "Total number of requests rejected by the per-client rate limiter.",
		},
	)
)
