package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed metrics
var (
	// FeedPollsTotal counts feed polls by outcome
	FeedPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_polls_total",
			Help: "Total number of feed polls by status",
		},
		[]string{"status"},
	)

	// FeedPollDuration measures feed fetch and parse duration in seconds
	FeedPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_poll_duration_seconds",
			Help:    "Feed fetch and parse duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// LatestPostTimestamp is the publish time of the newest feed entry
	LatestPostTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_latest_post_timestamp_seconds",
			Help: "Unix timestamp of the newest feed entry seen",
		},
	)
)

// Social API metrics
var (
	// TwitterRequestsTotal counts API requests by logical endpoint and outcome
	TwitterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twitter_api_requests_total",
			Help: "Total number of social API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// TwitterRequestDuration measures API request duration in seconds
	TwitterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twitter_api_request_duration_seconds",
			Help:    "Social API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// LastPublishedTimestamp is the creation time of the account's newest update
	LastPublishedTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "twitter_last_published_timestamp_seconds",
			Help: "Unix timestamp of the most recent update on the account",
		},
	)

	// PostsPublishedTotal counts announcements by mode (live, dry_run)
	PostsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posts_published_total",
			Help: "Total number of announcements made, by mode",
		},
		[]string{"mode"},
	)
)

// Resilience metrics
var (
	// CircuitBreakerState reports 0 closed, 1 half-open, 2 open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state by name (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)
