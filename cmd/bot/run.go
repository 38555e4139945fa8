package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"blog-tweeter/internal/config"
	"blog-tweeter/internal/infra/scraper"
	"blog-tweeter/internal/infra/twitter"
	"blog-tweeter/internal/infra/worker"
	"blog-tweeter/internal/observability/logging"
	pkgconfig "blog-tweeter/internal/pkg/config"
	"blog-tweeter/internal/usecase/announce"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	flags      pkgconfig.Source
	env        pkgconfig.Source
	configFile string
	dotEnvFile string
	once       bool
	stdout     io.Writer

	// registerer and gatherer default to the Prometheus default registry.
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// run resolves the configuration, verifies the session and runs the announce
// loop until ctx is cancelled. Configuration and authentication errors are
// returned before the loop starts. Returned errors are not logged here; the
// caller reports them once.
func run(ctx context.Context, opts runOptions) error {
	if opts.stdout == nil {
		opts.stdout = io.Discard
	}
	if opts.env == nil {
		opts.env = pkgconfig.EnvSource{}
	}
	if opts.registerer == nil {
		opts.registerer = prometheus.DefaultRegisterer
	}
	if opts.gatherer == nil {
		opts.gatherer = prometheus.DefaultGatherer
	}

	bootLogger := logging.New(logging.Options{Level: pkgconfig.LookupString(opts.env, config.KeyLogLevel)}, opts.stdout)
	workerMetrics := worker.NewWorkerMetrics(opts.registerer)

	cfg, err := config.Load(config.LoadOptions{
		Flags:      opts.flags,
		Env:        opts.env,
		DotEnvFile: opts.dotEnvFile,
		ConfigFile: opts.configFile,
		Logger:     bootLogger,
		Metrics:    workerMetrics,
	})
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}

	logger := logging.Redacting(
		logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}, opts.stdout),
		cfg.Credentials.Secrets(),
	)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Any("config", cfg))

	shutdownTracing := initTracing()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	session, err := twitter.NewSession(cfg.Twitter, cfg.Credentials, cfg.AccountID, twitter.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create API session: %w", err)
	}

	user, err := session.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	logger.Info("credentials verified",
		slog.String("username", user.Username),
		slog.String("account_id", session.AccountID()))

	poller := scraper.NewRSSPoller(newHTTPClient())

	var scheduler *worker.Scheduler
	svc := announce.NewService(poller, session, session, announce.Config{
		FeedURL:                cfg.FeedURL,
		PublishOnEmptyTimeline: cfg.PublishOnEmptyTimeline,
		DryRun:                 cfg.DryRun,
	},
		announce.WithLogger(logger),
		announce.WithPhaseObserver(func(p announce.Phase) {
			scheduler.SetState(worker.State(p))
		}),
	)

	job := func(ctx context.Context) error {
		_, err := svc.RunCycle(ctx)
		return err
	}
	scheduler = worker.NewScheduler(job, cfg.Scheduler,
		worker.WithLogger(logger),
		worker.WithMetrics(workerMetrics))

	if opts.once {
		return scheduler.RunOnce(ctx)
	}

	return serve(ctx, cfg, scheduler, opts.gatherer, logger)
}

// serve runs the scheduler next to the metrics and health servers. The first
// of them to fail stops the others.
func serve(ctx context.Context, cfg config.BotConfig, scheduler *worker.Scheduler, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsPort != 0 {
		server := newMetricsServer(fmt.Sprintf(":%d", cfg.MetricsPort), gatherer)
		g.Go(func() error {
			return ignoreClosed(serveHTTP(gctx, server, "metrics", logger))
		})
	}

	var health *worker.HealthServer
	if cfg.Scheduler.HealthPort != 0 {
		health = worker.NewHealthServer(fmt.Sprintf(":%d", cfg.Scheduler.HealthPort), logger, scheduler)
		g.Go(func() error {
			return ignoreClosed(health.Start(gctx))
		})
	}

	g.Go(func() error {
		if health != nil {
			health.SetReady(true)
		}
		logger.Info("bot started",
			slog.Duration("interval", cfg.Scheduler.Interval),
			slog.Bool("run_on_start", cfg.Scheduler.RunOnStart))
		return scheduler.Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger.Info("bot stopped")
		return nil
	}
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// initTracing installs an SDK tracer provider so spans carry real trace IDs.
// No exporter is attached.
func initTracing() func(context.Context) error {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
