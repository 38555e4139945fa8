package entity

import (
	"fmt"
	"net/url"
)

// maxURLLength bounds every URL the bot fetches or links to.
const maxURLLength = 2048

// ValidateURL checks that rawURL is an absolute http(s) URL with a host. It
// guards the feed URL, the API base URL and the link of each feed entry.
// Every failure is a *ValidationError.
func ValidateURL(rawURL string) error {
	switch {
	case rawURL == "":
		return invalidURL("is required")
	case len(rawURL) > maxURLLength:
		return invalidURL(fmt.Sprintf("must not exceed %d characters", maxURLLength))
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return invalidURL("is not parseable")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalidURL("must use http or https")
	}
	if u.Host == "" {
		return invalidURL("has no host")
	}
	return nil
}

func invalidURL(msg string) *ValidationError {
	return &ValidationError{Field: "url", Message: "URL " + msg}
}
