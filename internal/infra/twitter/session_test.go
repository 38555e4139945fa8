package twitter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/infra/twitter"
	"blog-tweeter/internal/resilience/circuitbreaker"
	"blog-tweeter/internal/resilience/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = entity.Credentials{
	ConsumerKey:       "consumer-key-123",
	ConsumerSecret:    "consumer-secret-456",
	AccessToken:       "access-token-789",
	AccessTokenSecret: "access-secret-000",
}

func fastRetry() twitter.Option {
	return twitter.WithRetryConfig(retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	})
}

func newSession(t *testing.T, server *httptest.Server, creds entity.Credentials, account string, opts ...twitter.Option) *twitter.Session {
	t.Helper()
	cfg := twitter.DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.Timeout = 5 * time.Second
	cfg.PublishRate = 0
	s, err := twitter.NewSession(cfg, creds, account, append([]twitter.Option{fastRetry()}, opts...)...)
	require.NoError(t, err)
	return s
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func assertOAuth(t *testing.T, r *http.Request) {
	t.Helper()
	auth := r.Header.Get("Authorization")
	assert.True(t, strings.HasPrefix(auth, "OAuth "), "expected OAuth header, got %q", auth)
	assert.Contains(t, auth, `oauth_consumer_key="consumer-key-123"`)
	assert.Contains(t, auth, `oauth_token="access-token-789"`)
	assert.NotContains(t, auth, "consumer-secret-456")
}

func TestNewSession_Validation(t *testing.T) {
	tests := []struct {
		name    string
		creds   entity.Credentials
		account string
		wantKey string
	}{
		{"empty consumer key", entity.Credentials{ConsumerSecret: "s", AccessToken: "t", AccessTokenSecret: "ts"}, "42", "CONSUMER_KEY"},
		{"empty access secret", entity.Credentials{ConsumerKey: "k", ConsumerSecret: "s", AccessToken: "t"}, "42", "ACCESS_TOKEN_SECRET"},
		{"empty account", testCreds, "  ", "USER_ID"},
		{"invalid account", testCreds, "not a user!", "USER_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := twitter.NewSession(twitter.DefaultConfig(), tt.creds, tt.account)

			var cfgErr *entity.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.ErrorIs(t, err, entity.ErrConfiguration)
		})
	}
}

func TestNewSession_NumericAccountNeedsNoLookup(t *testing.T) {
	s, err := twitter.NewSession(twitter.DefaultConfig(), testCreds, "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", s.AccountID())

	s, err = twitter.NewSession(twitter.DefaultConfig(), testCreds, "@golang")
	require.NoError(t, err)
	assert.Equal(t, "", s.AccountID())
}

func TestSession_Verify(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/2/users/me", r.URL.Path)
		assertOAuth(t, r)
		writeJSON(w, http.StatusOK, `{"data":{"id":"42","name":"Blog","username":"blogbot"}}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	me, err := s.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &twitter.User{ID: "42", Name: "Blog", Username: "blogbot"}, me)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSession_Verify_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, status, `{"title":"Unauthorized","type":"about:blank","status":401,"detail":"Unauthorized"}`)
			}))
			defer server.Close()

			s := newSession(t, server, testCreds, "42")

			_, err := s.Verify(context.Background())

			assert.ErrorIs(t, err, entity.ErrAuthentication)
			assert.True(t, entity.IsFatal(err))
			assert.Equal(t, int32(1), calls.Load(), "verification is never retried")
		})
	}
}

func TestSession_Verify_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"title":"Service Unavailable"}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	_, err := s.Verify(context.Background())

	assert.ErrorIs(t, err, entity.ErrRemoteService)
	assert.NotErrorIs(t, err, entity.ErrAuthentication)
}

func TestSession_Verify_ResolvesUsername(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"id":"42","name":"Me","username":"me"}}`)
	})
	mux.HandleFunc("/2/users/by/username/golang", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"id":"113","name":"Go","username":"golang"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := newSession(t, server, testCreds, "@golang")

	_, err := s.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "113", s.AccountID())
}

func TestSession_Verify_OwnUsernameSkipsLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"id":"42","name":"Me","username":"BlogBot"}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := newSession(t, server, testCreds, "blogbot")

	_, err := s.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", s.AccountID())
}

func TestSession_Verify_UnknownUsername(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"id":"42","name":"Me","username":"me"}}`)
	})
	mux.HandleFunc("/2/users/by/username/ghost", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"errors":[{"title":"Not Found Error","detail":"Could not find user with username: [ghost]."}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s := newSession(t, server, testCreds, "ghost")

	_, err := s.Verify(context.Background())

	var cfgErr *entity.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "USER_ID", cfgErr.Key)
}

func TestSession_LatestPublishedAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/users/42/tweets", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		assert.Equal(t, "created_at", r.URL.Query().Get("tweet.fields"))
		assert.Equal(t, "replies,retweets", r.URL.Query().Get("exclude"))
		assertOAuth(t, r)
		writeJSON(w, http.StatusOK, `{"data":[
			{"id":"2","text":"pinned","created_at":"2023-05-01T00:00:00.000Z"},
			{"id":"3","text":"newest","created_at":"2024-01-09T00:00:00.000Z"}
		],"meta":{"result_count":2}}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	got, err := s.LatestPublishedAt(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)), "got %v", got)
}

func TestSession_LatestPublishedAt_UsesBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer app-bearer-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"data":[{"id":"1","text":"t","created_at":"2024-01-09T00:00:00Z"}]}`)
	}))
	defer server.Close()

	creds := testCreds
	creds.BearerToken = "app-bearer-token"
	s := newSession(t, server, creds, "42")

	_, err := s.LatestPublishedAt(context.Background())
	require.NoError(t, err)
}

func TestSession_LatestPublishedAt_EmptyTimeline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"meta":{"result_count":0}}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	_, err := s.LatestPublishedAt(context.Background())

	assert.ErrorIs(t, err, entity.ErrNoPublishedItem)
	assert.NotErrorIs(t, err, entity.ErrRemoteService)
}

func TestSession_LatestPublishedAt_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, `{"title":"Too Many Requests","detail":"Too Many Requests"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[{"id":"1","text":"t","created_at":"2024-01-09T00:00:00Z"}]}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	_, err := s.LatestPublishedAt(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSession_LatestPublishedAt_RemoteFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `not json`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	_, err := s.LatestPublishedAt(context.Background())

	require.ErrorIs(t, err, entity.ErrRemoteService)
	var apiErr *twitter.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "timeline", apiErr.Endpoint)
}

func TestSession_LatestPublishedAt_InvalidCreatedAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[{"id":"1","text":"t"}]}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	_, err := s.LatestPublishedAt(context.Background())

	assert.ErrorIs(t, err, entity.ErrRemoteService)
}

func TestSession_LatestPublishedAt_RequiresResolvedAccount(t *testing.T) {
	s, err := twitter.NewSession(twitter.DefaultConfig(), testCreds, "golang")
	require.NoError(t, err)

	_, err = s.LatestPublishedAt(context.Background())

	assert.ErrorIs(t, err, entity.ErrRemoteService)
}

func TestSession_Publish(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assertOAuth(t, r)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New post - Hello\nhttps://blog.example.com/hello", body["text"])

		writeJSON(w, http.StatusCreated, `{"data":{"id":"1746","text":"New post - Hello\nhttps://t.co/x"}}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	id, err := s.Publish(context.Background(), "New post - Hello\nhttps://blog.example.com/hello")
	require.NoError(t, err)
	assert.Equal(t, "1746", id)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSession_Publish_NeverRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{"title":"Too Many Requests"}`},
		{"duplicate", http.StatusForbidden, `{"detail":"You are not allowed to create a Tweet with duplicate content."}`},
		{"server error", http.StatusInternalServerError, `{"title":"Internal Error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			s := newSession(t, server, testCreds, "42")

			_, err := s.Publish(context.Background(), "New post - x\nhttps://blog.example.com/x")

			assert.ErrorIs(t, err, entity.ErrPublish)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestSession_Publish_LogsRateLimitReset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		writeJSON(w, http.StatusTooManyRequests, `{"title":"Too Many Requests"}`)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	s := newSession(t, server, testCreds, "42", twitter.WithLogger(logger))

	_, err := s.Publish(context.Background(), "text")

	var apiErr *twitter.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
	assert.Contains(t, buf.String(), "publish rate limited")
	assert.Contains(t, buf.String(), `"retry_after":120000000000`)
}

func TestSession_Publish_MasksSecretsInErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"detail":"invalid token access-token-789"}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42")

	_, err := s.Publish(context.Background(), "text")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "access-token-789")
	assert.Contains(t, err.Error(), "****")
}

func TestSession_OpenCircuitFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	}))
	defer server.Close()

	s := newSession(t, server, testCreds, "42",
		twitter.WithRetryConfig(retry.Config{MaxAttempts: 1}),
		twitter.WithCircuitBreakerConfig(circuitbreaker.Config{
			Name:             "twitter-test",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			FailureThreshold: 1.0,
			MinRequests:      2,
		}),
	)

	for i := 0; i < 2; i++ {
		_, err := s.LatestPublishedAt(context.Background())
		require.Error(t, err)
	}

	_, err := s.Publish(context.Background(), "New post - x\nhttps://blog.example.com/x")

	assert.ErrorIs(t, err, entity.ErrPublish)
	assert.True(t, circuitbreaker.IsOpenError(unwrapAll(err)))
	assert.Equal(t, int32(2), calls.Load())
}

// unwrapAll follows the last wrapped error to the root cause.
func unwrapAll(err error) error {
	for {
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			errs := e.Unwrap()
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := e.Unwrap()
			if next == nil {
				return err
			}
			err = next
		default:
			return err
		}
	}
}
