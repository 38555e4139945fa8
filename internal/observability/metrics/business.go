package metrics

import (
	"context"
	"errors"
	"time"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
)

// StatusFor maps an error to a status label.
func StatusFor(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	default:
		return StatusFailure
	}
}

// RecordFeedPoll records one feed poll.
func RecordFeedPoll(status string, duration time.Duration) {
	FeedPollsTotal.WithLabelValues(status).Inc()
	FeedPollDuration.Observe(duration.Seconds())
}

// SetLatestPostTimestamp records the newest feed entry's publish time.
func SetLatestPostTimestamp(t time.Time) {
	LatestPostTimestamp.Set(float64(t.Unix()))
}

// RecordTwitterRequest records one API request. endpoint is a logical name
// (verify, lookup, timeline, publish), never a URL with ids in it.
func RecordTwitterRequest(endpoint, status string, duration time.Duration) {
	TwitterRequestsTotal.WithLabelValues(endpoint, status).Inc()
	TwitterRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SetLastPublishedTimestamp records the account's newest update time.
func SetLastPublishedTimestamp(t time.Time) {
	LastPublishedTimestamp.Set(float64(t.Unix()))
}

// RecordPublished counts an announcement.
func RecordPublished(dryRun bool) {
	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	PostsPublishedTotal.WithLabelValues(mode).Inc()
}

// SetCircuitBreakerState records a breaker transition. state follows
// gobreaker.State ordering: 0 closed, 1 half-open, 2 open.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
