package entity

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL_Accepts(t *testing.T) {
	for _, raw := range []string{
		"https://blog.example.com/index.xml",
		"http://blog.example.com/rss",
		"https://api.twitter.com",
		"http://127.0.0.1:1313/index.xml",
		"https://blog.example.com/posts/new-parser?utm_source=rss#top",
	} {
		assert.NoError(t, ValidateURL(raw), raw)
	}
}

func TestValidateURL_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		message string
	}{
		{"empty", "", "URL is required"},
		{"too long", "https://blog.example.com/" + strings.Repeat("a", maxURLLength), "must not exceed 2048 characters"},
		{"unparseable", "https://blog.example.com/%zz", "URL is not parseable"},
		{"ftp scheme", "ftp://blog.example.com/feed", "must use http or https"},
		{"file scheme", "file:///etc/passwd", "must use http or https"},
		{"relative path", "/posts/new-parser", "must use http or https"},
		{"missing scheme", "blog.example.com/rss", "must use http or https"},
		{"no host", "https://", "URL has no host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.raw)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %T: %v", err, err)
			assert.Equal(t, "url", vErr.Field)
			assert.Contains(t, vErr.Message, tt.message)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
