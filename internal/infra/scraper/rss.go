// Package scraper reads the blog's syndication feed.
// It uses the gofeed library to parse RSS and Atom documents behind retry and
// circuit breaker protection.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/observability/logging"
	"blog-tweeter/internal/observability/metrics"
	"blog-tweeter/internal/resilience/circuitbreaker"
	"blog-tweeter/internal/resilience/retry"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// UserAgent is sent with every feed request.
const UserAgent = "BlogTweeterBot"

// RSSPoller fetches a feed and extracts its newest entry.
type RSSPoller struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// Option configures an RSSPoller.
type Option func(*RSSPoller)

// WithRetryConfig overrides the retry policy for feed fetches.
func WithRetryConfig(cfg retry.Config) Option {
	return func(p *RSSPoller) { p.retryConfig = cfg }
}

// WithCircuitBreaker overrides the circuit breaker guarding the feed host.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(p *RSSPoller) { p.circuitBreaker = cb }
}

// NewRSSPoller creates a new RSSPoller with the given HTTP client.
func NewRSSPoller(client *http.Client, opts ...Option) *RSSPoller {
	p := &RSSPoller{
		client:         client,
		circuitBreaker: newBreaker(),
		retryConfig:    retry.FeedConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newBreaker() *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.FeedConfig()
	cfg.OnStateChange = func(name string, _, to gobreaker.State) {
		metrics.SetCircuitBreakerState(name, int(to))
	}
	return circuitbreaker.New(cfg)
}

// LatestPost fetches feedURL and returns the first entry in document order.
//
// Errors:
//   - entity.ErrEmptyFeed when the feed has no entries
//   - *entity.MalformedEntryError when the entry lacks a title, link or date
//   - entity.ErrRemoteService for transport, HTTP status and parse failures
//
// Every call performs a fresh fetch.
func (p *RSSPoller) LatestPost(ctx context.Context, feedURL string) (entity.Post, error) {
	feed, err := circuitbreaker.Do(p.circuitBreaker, func() (*gofeed.Feed, error) {
		var feed *gofeed.Feed
		err := retry.Do(ctx, p.retryConfig, "feed_fetch", func(ctx context.Context) error {
			var err error
			feed, err = p.fetch(ctx, feedURL)
			return err
		})
		return feed, err
	})
	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			logging.FromContext(ctx).Warn("feed circuit breaker open, request rejected",
				slog.String("service", p.circuitBreaker.Name()),
				slog.String("url", feedURL),
				slog.String("state", p.circuitBreaker.State().String()))
		}
		return entity.Post{}, fmt.Errorf("%w: fetch feed: %w", entity.ErrRemoteService, err)
	}

	if len(feed.Items) == 0 {
		return entity.Post{}, entity.ErrEmptyFeed
	}

	return postFromItem(feed.Items[0])
}

// fetch performs a single request without retry or circuit breaker.
func (p *RSSPoller) fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = UserAgent
	fp.Client = p.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var statusErr gofeed.HTTPError
		if errors.As(err, &statusErr) {
			return nil, &retry.HTTPError{StatusCode: statusErr.StatusCode, Message: statusErr.Status}
		}
		return nil, err
	}
	return feed, nil
}

func postFromItem(item *gofeed.Item) (entity.Post, error) {
	if item == nil {
		return entity.Post{}, &entity.MalformedEntryError{Field: "item", Reason: "missing"}
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return entity.Post{}, &entity.MalformedEntryError{Field: "title", Reason: "missing"}
	}

	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}
	if link == "" {
		return entity.Post{}, &entity.MalformedEntryError{Field: "link", Reason: "missing"}
	}
	if err := entity.ValidateURL(link); err != nil {
		return entity.Post{}, &entity.MalformedEntryError{Field: "link", Reason: err.Error()}
	}

	date, err := publishDate(item)
	if err != nil {
		return entity.Post{}, err
	}

	return entity.Post{Title: title, URL: link, Date: date}, nil
}
