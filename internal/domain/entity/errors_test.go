package entity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigurationError
		expected string
	}{
		{
			name:     "missing key",
			err:      &ConfigurationError{Key: "CONSUMER_KEY"},
			expected: "configuration error: CONSUMER_KEY is required",
		},
		{
			name:     "custom message",
			err:      &ConfigurationError{Key: "RSS", Message: "must use http or https scheme"},
			expected: "configuration error: RSS must use http or https scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConfigurationError_Unwrap(t *testing.T) {
	err := fmt.Errorf("load config: %w", &ConfigurationError{Key: "USER_ID"})

	assert.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "USER_ID", cfgErr.Key)
}

func TestMalformedEntryError(t *testing.T) {
	err := &MalformedEntryError{Field: "pubDate", Reason: "missing"}

	assert.Equal(t, "malformed feed entry: field 'pubDate': missing", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedEntry))
	assert.False(t, errors.Is(err, ErrEmptyFeed))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "url", Message: "URL is required"}

	assert.Equal(t, "validation error on field 'url': URL is required", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, IsFatal(err))
}

func TestSentinelErrors_Uniqueness(t *testing.T) {
	sentinels := []error{
		ErrConfiguration,
		ErrAuthentication,
		ErrEmptyFeed,
		ErrMalformedEntry,
		ErrNoPublishedItem,
		ErrRemoteService,
		ErrPublish,
		ErrValidation,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
		}
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"configuration", &ConfigurationError{Key: "RSS"}, true},
		{"authentication", fmt.Errorf("verify: %w", ErrAuthentication), true},
		{"empty feed", ErrEmptyFeed, false},
		{"malformed entry", &MalformedEntryError{Field: "link", Reason: "missing"}, false},
		{"no published item", ErrNoPublishedItem, false},
		{"remote service", fmt.Errorf("timeline: %w", ErrRemoteService), false},
		{"publish", fmt.Errorf("tweet: %w", ErrPublish), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}
