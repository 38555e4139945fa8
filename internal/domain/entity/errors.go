package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the announce cycle.
//
// ErrConfiguration and ErrAuthentication are fatal at startup. All other
// sentinels describe a failed cycle: the scheduler logs them and retries
// after the next interval.
var (
	// ErrConfiguration indicates that a required configuration value is missing or invalid.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication indicates that the social platform rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrEmptyFeed indicates that the feed document contains no entries.
	ErrEmptyFeed = errors.New("feed contains no entries")

	// ErrMalformedEntry indicates that the newest feed entry lacks a title, link
	// or a parseable publish date.
	ErrMalformedEntry = errors.New("malformed feed entry")

	// ErrNoPublishedItem indicates that the account has never published anything.
	ErrNoPublishedItem = errors.New("account has no published items")

	// ErrRemoteService wraps transport or protocol failures from the feed host
	// or the social platform.
	ErrRemoteService = errors.New("remote service error")

	// ErrPublish indicates that the social platform rejected a new update.
	ErrPublish = errors.New("publish failed")

	// ErrValidation indicates that a value failed a format check.
	ErrValidation = errors.New("validation failed")
)

// ConfigurationError names the configuration key that could not be resolved.
type ConfigurationError struct {
	Key     string
	Message string
}

// Error returns a message identifying the offending key.
func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("configuration error: %s is required", e.Key)
	}
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Message)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// MalformedEntryError describes which field of a feed entry was unusable.
type MalformedEntryError struct {
	Field  string
	Reason string
}

// Error returns a formatted error message for the malformed entry.
func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed feed entry: field '%s': %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedEntry).
func (e *MalformedEntryError) Unwrap() error {
	return ErrMalformedEntry
}

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsFatal reports whether err must stop the process instead of failing a single cycle.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrAuthentication)
}
