package twitter

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("burst passes immediately", func(t *testing.T) {
		limiter := NewRateLimiter(1.0/60, 1)

		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("first request should succeed: %v", err)
		}
	})

	t.Run("second request exceeds deadline", func(t *testing.T) {
		limiter := NewRateLimiter(1.0/60, 1)
		_ = limiter.Wait(context.Background())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := limiter.Wait(ctx); err == nil {
			t.Error("expected the second request to be rejected within the deadline")
		}
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		limiter := NewRateLimiter(0, 0)

		start := time.Now()
		for i := 0; i < 100; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("unlimited requests took %v", elapsed)
		}
	})
}
