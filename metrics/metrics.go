package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests.
	// Labels: method, route (the gin route pattern), status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration measures request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civicsync",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	IssuesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "issues",
		Name:      "created_total",
		Help:      "Total issues created",
	})

	// StatusChanges counts status transitions.
	// Labels: status (the new status)
	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "issues",
		Name:      "status_changes_total",
		Help:      "Total issue status transitions",
	}, []string{"status"})

	// UpvoteToggles counts upvote toggles.
	// Labels: direction (on, off)
	UpvoteToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Subsystem: "issues",
		Name:      "upvote_toggles_total",
		Help:      "Total upvote toggles",
	}, []string{"direction"})

	// SideEffectFailures counts best-effort work that failed and was
	// swallowed.
	// Labels: kind (email, notification, storage_delete)
	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Name:      "side_effect_failures_total",
		Help:      "Total failed best-effort side effects",
	}, []string{"kind"})

	// RateLimited counts requests rejected by a limiter.
	// Labels: limiter (issue_daily, api)
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicsync",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by rate limiting",
	}, []string{"limiter"})
)
