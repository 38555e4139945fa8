package twitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/observability/metrics"
	"blog-tweeter/internal/resilience/circuitbreaker"
	"blog-tweeter/internal/resilience/retry"

	"github.com/dghubble/oauth1"
	"github.com/sony/gobreaker"
)

var (
	numericID = regexp.MustCompile(`^[0-9]+$`)
	username  = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

// timelineSize is how many recent updates are requested. The newest one is
// all the bot needs, but the API rejects max_results below 5.
const timelineSize = 5

// Session is the authenticated handle to the API.
//
// Verify must complete before the session is shared: it resolves the account
// id. After that the session is read-only and safe for concurrent use.
type Session struct {
	cfg         Config
	api         *apiClient
	user        *http.Client
	app         *http.Client
	account     string
	accountID   string
	limiter     *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
	logger      *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for verbose output and warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRetryConfig overrides the retry policy for reads.
func WithRetryConfig(cfg retry.Config) Option {
	return func(s *Session) { s.retryConfig = cfg }
}

// WithCircuitBreakerConfig overrides the breaker settings.
func WithCircuitBreakerConfig(cfg circuitbreaker.Config) Option {
	return func(s *Session) { s.breaker = newBreaker(cfg) }
}

// WithClock overrides the time source used for rate-limit reset headers.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.api.now = now }
}

// NewSession builds a session from credentials. account is the numeric id or
// the username (with or without a leading @) whose timeline is compared
// against the feed. No network call is made.
func NewSession(cfg Config, creds entity.Credentials, account string, opts ...Option) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	account = strings.TrimPrefix(strings.TrimSpace(account), "@")
	if account == "" {
		return nil, &entity.ConfigurationError{Key: "USER_ID"}
	}
	if !numericID.MatchString(account) && !username.MatchString(account) {
		return nil, &entity.ConfigurationError{Key: "USER_ID", Message: "must be a numeric id or a username"}
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := entity.ValidateURL(cfg.BaseURL); err != nil {
		return nil, &entity.ConfigurationError{Key: "TWITTER_API_BASE_URL", Message: err.Error()}
	}

	oauthConfig := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	user := oauthConfig.Client(context.Background(), token)
	user.Timeout = cfg.Timeout

	app := user
	if creds.HasBearerToken() {
		app = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &bearerTransport{token: creds.BearerToken},
		}
	}

	s := &Session{
		cfg: cfg,
		api: &apiClient{
			baseURL: cfg.BaseURL,
			secrets: creds.Secrets(),
			now:     time.Now,
		},
		user:        user,
		app:         app,
		account:     account,
		limiter:     NewRateLimiter(cfg.PublishRate, cfg.PublishBurst),
		breaker:     newBreaker(circuitbreaker.TwitterAPIConfig()),
		retryConfig: retry.TimelineConfig(),
		logger:      slog.Default(),
	}
	if numericID.MatchString(account) {
		s.accountID = account
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newBreaker(cfg circuitbreaker.Config) *circuitbreaker.CircuitBreaker {
	cfg.IsSuccessful = func(err error) bool {
		if err == nil || errors.Is(err, context.Canceled) {
			return true
		}
		var apiErr *APIError
		return errors.As(err, &apiErr) && !apiErr.Retryable()
	}
	cfg.OnStateChange = func(name string, _, to gobreaker.State) {
		metrics.SetCircuitBreakerState(name, int(to))
	}
	return circuitbreaker.New(cfg)
}

// AccountID returns the numeric id of the watched account, or "" before Verify
// has resolved a username.
func (s *Session) AccountID() string {
	return s.accountID
}

// Verify checks the credentials with one call to /2/users/me and resolves the
// watched account. It does not retry: rejected credentials will not become
// valid, and the bot must not start on an unverified session.
//
// Errors:
//   - entity.ErrAuthentication when the API rejects the credentials
//   - *entity.ConfigurationError when the configured username does not exist
//   - entity.ErrRemoteService for every other failure
func (s *Session) Verify(ctx context.Context) (*User, error) {
	var me User
	raw, err := s.api.do(ctx, s.user, "verify", http.MethodGet, "/2/users/me", nil, nil, &me)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsAuth() {
			return nil, fmt.Errorf("%w: %w", entity.ErrAuthentication, err)
		}
		return nil, fmt.Errorf("%w: verify credentials: %w", entity.ErrRemoteService, err)
	}
	if me.ID == "" {
		return nil, fmt.Errorf("%w: verify credentials: empty user in response", entity.ErrRemoteService)
	}

	if s.cfg.Verbose {
		s.logger.Info("credentials verified",
			slog.String("id", me.ID),
			slog.String("username", me.Username),
			slog.String("name", me.Name),
			slog.String("response", string(raw)))
	}

	if s.accountID == "" {
		if strings.EqualFold(s.account, me.Username) {
			s.accountID = me.ID
		} else if err := s.resolveAccount(ctx); err != nil {
			return nil, err
		}
	}

	if s.accountID != me.ID {
		s.logger.Info("watching a different account than the authenticated user",
			slog.String("account_id", s.accountID),
			slog.String("authenticated_id", me.ID))
	}

	return &me, nil
}

func (s *Session) resolveAccount(ctx context.Context) error {
	var u User
	err := retry.Do(ctx, s.retryConfig, "twitter_lookup", func(ctx context.Context) error {
		_, err := s.api.do(ctx, s.app, "lookup", http.MethodGet,
			"/2/users/by/username/"+url.PathEscape(s.account), nil, nil, &u)
		return err
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusOK) {
			return &entity.ConfigurationError{Key: "USER_ID", Message: fmt.Sprintf("account %q not found", s.account)}
		}
		return fmt.Errorf("%w: resolve account %q: %w", entity.ErrRemoteService, s.account, err)
	}
	if u.ID == "" {
		return &entity.ConfigurationError{Key: "USER_ID", Message: fmt.Sprintf("account %q not found", s.account)}
	}
	s.accountID = u.ID
	return nil
}

// LatestPublishedAt returns the creation time of the watched account's newest
// original update. Replies and retweets are excluded.
//
// Errors:
//   - entity.ErrNoPublishedItem when the account has no updates
//   - entity.ErrRemoteService for transport and protocol failures
func (s *Session) LatestPublishedAt(ctx context.Context) (time.Time, error) {
	if s.accountID == "" {
		return time.Time{}, fmt.Errorf("%w: account %q not resolved, call Verify first", entity.ErrRemoteService, s.account)
	}

	query := url.Values{}
	query.Set("max_results", fmt.Sprint(timelineSize))
	query.Set("tweet.fields", "created_at")
	// Only original updates count as published; a later reply or retweet
	// must not hide an unannounced post.
	query.Set("exclude", "replies,retweets")

	tweets, err := circuitbreaker.Do(s.breaker, func() ([]Tweet, error) {
		var tweets []Tweet
		err := retry.Do(ctx, s.retryConfig, "twitter_timeline", func(ctx context.Context) error {
			tweets = nil
			_, err := s.api.do(ctx, s.app, "timeline", http.MethodGet,
				"/2/users/"+url.PathEscape(s.accountID)+"/tweets", query, nil, &tweets)
			return err
		})
		return tweets, err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read timeline: %w", entity.ErrRemoteService, err)
	}

	if len(tweets) == 0 {
		return time.Time{}, entity.ErrNoPublishedItem
	}

	latest, err := newestCreatedAt(tweets)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read timeline: %w", entity.ErrRemoteService, err)
	}
	metrics.SetLastPublishedTimestamp(latest)
	return latest, nil
}

// newestCreatedAt returns the latest created_at among tweets. The API lists
// newest first, but pinned or edited updates can break that ordering.
func newestCreatedAt(tweets []Tweet) (time.Time, error) {
	var latest time.Time
	for _, t := range tweets {
		created, err := time.Parse(time.RFC3339, t.CreatedAt)
		if err != nil {
			continue
		}
		if created.After(latest) {
			latest = created
		}
	}
	if latest.IsZero() {
		return time.Time{}, fmt.Errorf("no tweet with a valid created_at among %d", len(tweets))
	}
	return latest, nil
}

// Publish posts text as a new update and returns its id. It makes exactly one
// API call and never retries, because a failed response does not prove the
// update was not created.
//
// Every failure wraps entity.ErrPublish.
func (s *Session) Publish(ctx context.Context, text string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %w", entity.ErrPublish, err)
	}

	if s.cfg.Verbose {
		s.logger.Info("publishing update", slog.String("text", text))
	}

	tweet, err := circuitbreaker.Do(s.breaker, func() (Tweet, error) {
		var tweet Tweet
		_, err := s.api.do(ctx, s.user, "publish", http.MethodPost, "/2/tweets", nil,
			map[string]string{"text": text}, &tweet)
		return tweet, err
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsRateLimited() {
			s.logger.Warn("publish rate limited by the API, the post will be retried next cycle",
				slog.Duration("retry_after", apiErr.RetryAfter))
		}
		return "", fmt.Errorf("%w: %w", entity.ErrPublish, err)
	}
	if tweet.ID == "" {
		return "", fmt.Errorf("%w: response did not include the new update", entity.ErrPublish)
	}
	return tweet.ID, nil
}
