package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/observability/logging"
	"blog-tweeter/internal/observability/metrics"
	"blog-tweeter/internal/observability/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// FeedPoller returns the newest entry of a feed.
type FeedPoller interface {
	LatestPost(ctx context.Context, feedURL string) (entity.Post, error)
}

// Timeline returns when the watched account last published.
type Timeline interface {
	LatestPublishedAt(ctx context.Context) (time.Time, error)
}

// Publisher posts a new update and returns its id.
type Publisher interface {
	Publish(ctx context.Context, text string) (string, error)
}

// Phase is the step a cycle is in.
type Phase string

// Cycle phases in execution order.
const (
	PhasePolling    Phase = "polling"
	PhaseDeciding   Phase = "deciding"
	PhasePublishing Phase = "publishing"
)

// Outcome describes how a successful cycle ended.
type Outcome string

const (
	// OutcomePublished means the post was announced.
	OutcomePublished Outcome = "published"
	// OutcomeDryRun means the post was newer but publishing is disabled.
	OutcomeDryRun Outcome = "dry_run"
	// OutcomeUpToDate means the account already covers the newest post.
	OutcomeUpToDate Outcome = "up_to_date"
)

// Config controls the cycle's decisions.
type Config struct {
	// FeedURL is the blog feed to poll.
	FeedURL string

	// PublishOnEmptyTimeline announces the newest post when the account has
	// never published. When false such a cycle fails with ErrNoPublishedItem.
	PublishOnEmptyTimeline bool

	// DryRun logs the message instead of publishing it.
	DryRun bool
}

// CycleResult describes a completed cycle.
type CycleResult struct {
	Post entity.Post
	// LastPublishedAt is zero when the timeline was empty.
	LastPublishedAt time.Time
	Outcome         Outcome
	// Message is set when the post was newer.
	Message string
	// PublishedID is the id of the new update, set for OutcomePublished.
	PublishedID string
}

// Service runs announce cycles. It keeps no state between cycles.
type Service struct {
	poller    FeedPoller
	timeline  Timeline
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	onPhase   func(Phase)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPhaseObserver registers a callback invoked at each phase change.
func WithPhaseObserver(fn func(Phase)) Option {
	return func(s *Service) { s.onPhase = fn }
}

// NewService creates a Service.
func NewService(poller FeedPoller, timeline Timeline, publisher Publisher, cfg Config, opts ...Option) *Service {
	s := &Service{
		poller:    poller,
		timeline:  timeline,
		publisher: publisher,
		cfg:       cfg,
		logger:    slog.Default(),
		onPhase:   func(Phase) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle polls the feed, reads the account's latest update, and publishes
// the newest post when it is strictly newer. The steps run sequentially and
// at most one update is published.
//
// A returned error means the cycle was abandoned. It is one of the per-cycle
// errors of package entity unless ctx was canceled.
func (s *Service) RunCycle(ctx context.Context) (result *CycleResult, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "announce.cycle")
	defer func() {
		if err != nil {
			tracing.RecordError(span, err)
		} else {
			span.SetAttributes(attribute.String("announce.outcome", string(result.Outcome)))
		}
		span.End()
	}()
	logger := logging.WithCycleID(ctx, s.logger)

	s.onPhase(PhasePolling)
	post, err := s.pollFeed(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("post.url", post.URL))
	logger.Debug("latest post",
		slog.String("title", post.Title),
		slog.String("url", post.URL),
		slog.Time("date", post.Date))

	lastPublished, err := s.latestPublished(ctx)
	emptyTimeline := errors.Is(err, entity.ErrNoPublishedItem)
	switch {
	case emptyTimeline && s.cfg.PublishOnEmptyTimeline:
		logger.Info("account has never published, announcing latest post")
	case err != nil:
		return nil, err
	}

	s.onPhase(PhaseDeciding)
	result = &CycleResult{Post: post, LastPublishedAt: lastPublished}
	if !emptyTimeline && !IsNewer(post.Date, lastPublished) {
		result.Outcome = OutcomeUpToDate
		logger.Info("no new post",
			slog.Time("post_date", post.Date),
			slog.Time("last_published_at", lastPublished))
		return result, nil
	}

	result.Message = FormatMessage(post)

	if s.cfg.DryRun {
		result.Outcome = OutcomeDryRun
		metrics.RecordPublished(true)
		logger.Info("dry run, not publishing",
			slog.String("url", post.URL),
			slog.String("text", result.Message))
		return result, nil
	}

	s.onPhase(PhasePublishing)
	id, err := s.publish(ctx, result.Message)
	if err != nil {
		return nil, err
	}
	result.Outcome = OutcomePublished
	result.PublishedID = id
	metrics.RecordPublished(false)
	logger.Info("new post published",
		slog.String("url", post.URL),
		slog.String("id", id))

	return result, nil
}

func (s *Service) pollFeed(ctx context.Context) (entity.Post, error) {
	ctx, span := tracing.Tracer().Start(ctx, "feed.poll")
	defer span.End()

	start := time.Now()
	post, err := s.poller.LatestPost(ctx, s.cfg.FeedURL)
	metrics.RecordFeedPoll(metrics.StatusFor(err), time.Since(start))
	if err != nil {
		tracing.RecordError(span, err)
		return entity.Post{}, fmt.Errorf("poll feed: %w", err)
	}
	metrics.SetLatestPostTimestamp(post.Date)
	return post, nil
}

func (s *Service) latestPublished(ctx context.Context) (time.Time, error) {
	ctx, span := tracing.Tracer().Start(ctx, "timeline.latest")
	defer span.End()

	t, err := s.timeline.LatestPublishedAt(ctx)
	if err != nil {
		if !errors.Is(err, entity.ErrNoPublishedItem) {
			tracing.RecordError(span, err)
		}
		return time.Time{}, fmt.Errorf("read published state: %w", err)
	}
	return t, nil
}

func (s *Service) publish(ctx context.Context, text string) (string, error) {
	ctx, span := tracing.Tracer().Start(ctx, "publish")
	defer span.End()

	id, err := s.publisher.Publish(ctx, text)
	if err != nil {
		tracing.RecordError(span, err)
		return "", fmt.Errorf("publish: %w", err)
	}
	return id, nil
}
