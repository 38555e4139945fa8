// Package retry provides retry logic with exponential backoff and jitter.
// Only idempotent reads go through it.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"

	"blog-tweeter/internal/observability/logging"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// FeedConfig returns the configuration for fetching the blog feed.
func FeedConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// TimelineConfig returns the configuration for reading the account timeline
// and resolving the account. Rate-limit responses carry their own reset time,
// which takes precedence over the computed delay up to MaxDelay.
func TimelineConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       15 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// Do executes fn with retry logic and exponential backoff.
// op names the operation in log records.
// It returns nil if fn succeeds, or the last error if all attempts fail.
func Do(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := cfg.InitialDelay
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	logger := logging.FromContext(ctx)

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)

		if lastErr == nil {
			if attempt > 1 {
				logger.Info("operation succeeded after retry",
					slog.String("op", op),
					slog.Int("attempt", attempt))
			}
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		wait := delay
		if ra := retryAfter(lastErr); ra > wait {
			wait = ra
		}
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		logger.Warn("operation failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", wait),
			slog.Any("error", lastErr))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
		delay = addJitter(delay, cfg.JitterFraction)
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, lastErr)
}

// IsRetryable determines if an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	return false
}

// retryable is implemented by errors that classify themselves, such as
// HTTPError or a client's API error type.
type retryable interface {
	Retryable() bool
}

// delayHinter is implemented by errors that carry a server-provided wait.
type delayHinter interface {
	RetryDelay() time.Duration
}

// HTTPError represents a non-2xx HTTP response.
type HTTPError struct {
	StatusCode int
	Message    string
	// RetryAfter is the server-provided wait before the next attempt, if any.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status code indicates a transient failure.
func (e *HTTPError) Retryable() bool {
	switch {
	case e.StatusCode >= 500 && e.StatusCode < 600:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode == http.StatusRequestTimeout:
		return true
	}
	return false
}

// RetryDelay implements the Retry-After hint.
func (e *HTTPError) RetryDelay() time.Duration {
	return e.RetryAfter
}

func retryAfter(err error) time.Duration {
	var h delayHinter
	if errors.As(err, &h) {
		return h.RetryDelay()
	}
	return 0
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
