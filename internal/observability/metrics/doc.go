// Package metrics provides the Prometheus collectors for the bot's remote calls.
//
// This package covers:
//   - Feed polls (outcome, latency, newest post timestamp)
//   - Social API requests (endpoint, outcome, latency)
//   - Published updates (live or dry run)
//   - Circuit breaker state
//
// All collectors are registered with the Prometheus default registry and
// exposed via the /metrics endpoint. Scheduler metrics live with the
// scheduler in internal/infra/worker.
//
// Example usage:
//
//	import "blog-tweeter/internal/observability/metrics"
//
//	func poll(ctx context.Context) {
//	    start := time.Now()
//	    post, err := poller.LatestPost(ctx, feedURL)
//	    metrics.RecordFeedPoll(metrics.StatusFor(err), time.Since(start))
//	}
package metrics
