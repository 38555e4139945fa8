package twitter

import (
	"fmt"
	"net/http"
	"time"
)

// APIError is a failed API call: either a non-2xx status or a 2xx body that
// carries only an errors array (the API reports unknown users that way).
type APIError struct {
	Endpoint   string
	StatusCode int
	Title      string
	Detail     string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Title
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("twitter %s: HTTP %d: %s", e.Endpoint, e.StatusCode, msg)
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode == http.StatusRequestTimeout:
		return true
	}
	return false
}

// RetryDelay returns the wait suggested by the rate-limit headers.
func (e *APIError) RetryDelay() time.Duration {
	return e.RetryAfter
}

// IsAuth reports whether the credentials were rejected.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited reports a 429 response.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
