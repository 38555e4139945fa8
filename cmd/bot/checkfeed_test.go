package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFeed_OK(t *testing.T) {
	feed := newFeedServer(t)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-feed", "--rss", feed.URL, "--json", "--env-file", filepath.Join(t.TempDir(), ".env")})

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var diag FeedDiagnostic
	require.NoError(t, json.Unmarshal(out.Bytes(), &diag))
	assert.Equal(t, FeedStatusOK, diag.Status)
	assert.Equal(t, "Shipping the new parser", diag.LatestTitle)
	assert.Equal(t, "2024-01-09T10:00:00Z", diag.LatestDate)
	assert.Equal(t, "New post - Shipping the new parser\nhttps://blog.example.com/posts/new-parser", diag.Message)
}

func TestCheckFeed_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		want     string
		wantCode int
	}{
		{
			name:     "not found",
			handler:  func(w http.ResponseWriter, _ *http.Request) { http.NotFound(w, nil) },
			want:     FeedStatusHTTPError,
			wantCode: http.StatusNotFound,
		},
		{
			name: "empty",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>Empty</title></channel></rss>`))
			},
			want: FeedStatusEmpty,
		},
		{
			name: "missing date",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<rss version="2.0"><channel><title>B</title><item><title>T</title><link>https://blog.example.com/t</link></item></channel></rss>`))
			},
			want: FeedStatusMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			cmd := newRootCommand()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"check-feed", "--rss", server.URL, "--env-file", ""})

			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, out.String(), "Status:   "+tt.want)
		})
	}

	t.Run("http code reported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		cmd := newRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"check-feed", "--rss", server.URL, "--json", "--env-file", ""})

		require.Error(t, cmd.ExecuteContext(context.Background()))
		var diag FeedDiagnostic
		require.NoError(t, json.Unmarshal(out.Bytes(), &diag))
		assert.Equal(t, http.StatusNotFound, diag.HTTPCode)
	})
}
