package twitter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket guarding the publish endpoint.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained and
// burst requests at once. A non-positive rate disables limiting.
//
// Example:
//
//	limiter := NewRateLimiter(1.0/60, 1)  // one request per minute
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or the context is done.
// It fails immediately when the wait would outlast the context deadline.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
