package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/observability/logging"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// State is the phase the scheduler is currently in.
type State string

const (
	StateIdle       State = "idle"
	StatePolling    State = "polling"
	StateDeciding   State = "deciding"
	StatePublishing State = "publishing"
)

// States lists every State in loop order.
func States() []State {
	return []State{StateIdle, StatePolling, StateDeciding, StatePublishing}
}

// Job is one announce cycle. A recoverable error is logged and the loop
// continues; a fatal one (see entity.IsFatal) stops the loop.
type Job func(ctx context.Context) error

// Scheduler runs a Job forever, waiting a fixed delay between the end of one
// run and the start of the next. Runs never overlap.
type Scheduler struct {
	job          Job
	schedule     cron.Schedule
	clock        Clock
	cycleTimeout time.Duration
	runOnStart   bool
	logger       *slog.Logger
	metrics      *WorkerMetrics

	mu          sync.RWMutex
	state       State
	lastCycleAt time.Time
	lastErr     error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *WorkerMetrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithSchedule replaces the cron.Every(cfg.Interval) schedule.
func WithSchedule(schedule cron.Schedule) Option {
	return func(s *Scheduler) { s.schedule = schedule }
}

// NewScheduler creates a scheduler for job using cfg.
func NewScheduler(job Job, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		job:          job,
		schedule:     cron.Every(cfg.Interval),
		clock:        RealClock{},
		cycleTimeout: cfg.CycleTimeout,
		runOnStart:   cfg.RunOnStart,
		logger:       slog.Default(),
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the loop until ctx is cancelled or the job fails fatally.
//
// Cancellation is only observed while idle: a cycle already in flight runs
// to completion (bounded by the cycle timeout) and the loop then returns
// ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.SetState(StateIdle)

	if !s.runOnStart {
		if err := s.wait(ctx, s.clock.Now()); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.RunOnce(ctx); err != nil && entity.IsFatal(err) {
			return err
		}

		if err := s.wait(ctx, s.clock.Now()); err != nil {
			return err
		}
	}
}

// wait sleeps until the schedule's next activation after cycleEnd.
func (s *Scheduler) wait(ctx context.Context, cycleEnd time.Time) error {
	next := nextStart(s.schedule, cycleEnd)
	if s.metrics != nil {
		s.metrics.SetNextRun(next.Unix())
	}
	s.logger.Debug("next cycle scheduled",
		slog.Time("next_run", next),
		slog.Duration("in", next.Sub(cycleEnd)))

	select {
	case <-ctx.Done():
		s.logger.Info("scheduler stopped", slog.Any("reason", ctx.Err()))
		return ctx.Err()
	case <-s.clock.After(next.Sub(cycleEnd)):
		return nil
	}
}

// nextStart returns the first activation of schedule that is at least one
// full delay after cycleEnd. cron's ConstantDelaySchedule rounds to whole
// seconds, so a fractional end time is moved up to the next second first.
func nextStart(schedule cron.Schedule, cycleEnd time.Time) time.Time {
	from := cycleEnd
	if truncated := cycleEnd.Truncate(time.Second); !truncated.Equal(cycleEnd) {
		from = truncated.Add(time.Second)
	}
	return schedule.Next(from)
}

// RunOnce runs a single cycle with its own ID and timeout. The cycle is
// detached from ctx cancellation so a shutdown signal lets it finish.
func (s *Scheduler) RunOnce(ctx context.Context) (err error) {
	cycleID := uuid.NewString()
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()
	cycleCtx = logging.ContextWithCycleID(cycleCtx, cycleID)
	logger := logging.WithCycleID(cycleCtx, s.logger)
	cycleCtx = logging.WithLogger(cycleCtx, logger)

	start := s.clock.Now()
	logger.Info("cycle started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
		}
		s.finish(logger, start, err)
	}()

	return s.job(cycleCtx)
}

func (s *Scheduler) finish(logger *slog.Logger, start time.Time, err error) {
	end := s.clock.Now()
	duration := end.Sub(start)

	s.mu.Lock()
	s.lastCycleAt = end
	s.lastErr = err
	s.mu.Unlock()
	s.SetState(StateIdle)

	reason := ReasonFor(err)
	status := "success"
	if err != nil {
		status = "failure"
	}
	if s.metrics != nil {
		s.metrics.RecordCycle(status, reason, duration.Seconds())
		if err == nil {
			s.metrics.RecordLastSuccess()
		}
	}

	switch {
	case err == nil:
		logger.Info("cycle completed", slog.Duration("duration", duration))
	case entity.IsFatal(err):
		logger.Error("cycle failed fatally",
			slog.String("reason", reason),
			slog.Any("error", err),
			slog.Duration("duration", duration))
	default:
		logger.Warn("cycle abandoned",
			slog.String("reason", reason),
			slog.Any("error", err),
			slog.Duration("duration", duration))
	}
}

// SetState records the current phase. It is safe to call from the job.
func (s *Scheduler) SetState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetState(state)
	}
}

// State returns the current phase.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastCycle returns when the previous cycle ended and its error.
// The zero time means no cycle has finished yet.
func (s *Scheduler) LastCycle() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCycleAt, s.lastErr
}

// ReasonFor maps a cycle error to a low-cardinality metric label.
func ReasonFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entity.ErrConfiguration):
		return "configuration"
	case errors.Is(err, entity.ErrAuthentication):
		return "authentication"
	case errors.Is(err, entity.ErrEmptyFeed):
		return "empty_feed"
	case errors.Is(err, entity.ErrMalformedEntry):
		return "malformed_entry"
	case errors.Is(err, entity.ErrNoPublishedItem):
		return "no_published_item"
	case errors.Is(err, entity.ErrPublish):
		return "publish"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, entity.ErrRemoteService):
		return "remote_service"
	default:
		return "other"
	}
}
