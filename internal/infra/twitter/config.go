// Package twitter implements the bot's session with the X (Twitter) API v2.
//
// A Session signs user-context requests with OAuth 1.0a and, when a bearer
// token is configured, reads the timeline with app-only auth. It offers the
// three operations the announce cycle needs: verify the credentials, read the
// creation time of the account's newest update, and publish a new update.
package twitter

import "time"

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.twitter.com"

// Config contains configuration for the API session.
type Config struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string

	// Timeout is the HTTP request timeout for API calls
	Timeout time.Duration

	// PublishRate is the sustained publish rate in requests per second
	PublishRate float64

	// PublishBurst is the number of publishes allowed without waiting
	PublishBurst int

	// Verbose dumps the verification response and published text to the log
	Verbose bool
}

// DefaultConfig returns the production configuration.
// Publishing is limited to one update per minute; the bot makes at most one
// per cycle, so the limiter only matters for very short intervals.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Timeout:      30 * time.Second,
		PublishRate:  1.0 / 60,
		PublishBurst: 1,
	}
}
