// Package resilience groups the fault tolerance helpers used by the bot's
// outbound calls.
//
//   - circuitbreaker: stops hammering the feed host or the social API once
//     they fail consistently, and lets a probe through after a cool-down.
//   - retry: exponential backoff with jitter for idempotent reads.
//
// Publishing is never retried. A timeout on a write may still have created
// the post, and a second attempt would announce it twice.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.FeedConfig())
//	post, err := circuitbreaker.Do(cb, func() (entity.Post, error) {
//	    var p entity.Post
//	    err := retry.Do(ctx, retry.FeedConfig(), "feed", func(ctx context.Context) error {
//	        var err error
//	        p, err = fetch(ctx)
//	        return err
//	    })
//	    return p, err
//	})
package resilience
