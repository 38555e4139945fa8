// Package config resolves the bot configuration once at startup.
//
// Values are merged from, highest precedence first: command-line flags, the
// process environment, a .env file and an optional YAML file. The result is
// an immutable BotConfig passed by value to every component; nothing else in
// the program reads the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/infra/twitter"
	"blog-tweeter/internal/infra/worker"
	pkgconfig "blog-tweeter/internal/pkg/config"
)

// Configuration keys. Flags, the environment and the .env file use them as is;
// the YAML file uses their snake case form.
const (
	KeyUserID            = "USER_ID"
	KeyRSS               = "RSS"
	KeyConsumerKey       = "CONSUMER_KEY"
	KeyConsumerSecret    = "CONSUMER_SECRET"
	KeyAccessToken       = "ACCESS_TOKEN"
	KeyAccessTokenSecret = "ACCESS_TOKEN_SECRET"
	KeyBearerToken       = "BEARER_TOKEN"

	KeyVerbose                = "VERBOSE"
	KeyDryRun                 = "DRY_RUN"
	KeyPublishOnEmptyTimeline = "PUBLISH_ON_EMPTY_TIMELINE"
	KeyLogLevel               = "LOG_LEVEL"
	KeyLogFormat              = "LOG_FORMAT"
	KeyMetricsPort            = "METRICS_PORT"
	KeyTwitterBaseURL         = "TWITTER_API_BASE_URL"
	KeyTwitterTimeout         = "TWITTER_TIMEOUT"
)

// BotConfig is the fully resolved configuration.
type BotConfig struct {
	Credentials entity.Credentials

	// AccountID is the watched account: a numeric id or a username.
	AccountID string

	// FeedURL is the RSS feed of the blog.
	FeedURL string

	Scheduler worker.Config
	Twitter   twitter.Config

	// PublishOnEmptyTimeline publishes the latest post when the account has
	// never published anything. When false such a cycle is abandoned.
	PublishOnEmptyTimeline bool

	// DryRun logs the update instead of publishing it.
	DryRun bool

	// Verbose dumps the verification response and published text.
	Verbose bool

	LogLevel  string
	LogFormat string

	// MetricsPort serves /metrics. 0 disables it.
	MetricsPort int
}

// LoadOptions lists the sources Load merges.
type LoadOptions struct {
	// Flags holds values set on the command line. May be nil.
	Flags pkgconfig.Source

	// Env is the process environment. Nil means pkgconfig.EnvSource{}.
	Env pkgconfig.Source

	// DotEnvFile is read when it exists. Empty disables it.
	DotEnvFile string

	// ConfigFile is an optional YAML file.
	ConfigFile string

	Logger  *slog.Logger
	Metrics *worker.WorkerMetrics
}

// Load merges every source into a BotConfig.
//
// Required keys (USER_ID, RSS and the four OAuth secrets) must be non-empty
// after merging, otherwise a *entity.ConfigurationError naming the first
// missing key is returned. Optional settings fall back to their defaults with
// a logged warning.
func Load(opts LoadOptions) (BotConfig, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	env := opts.Env
	if env == nil {
		env = pkgconfig.EnvSource{}
	}

	dotEnv, err := LoadDotEnv(opts.DotEnvFile)
	if err != nil {
		return BotConfig{}, fmt.Errorf("%w: %w", entity.ErrConfiguration, err)
	}

	var file pkgconfig.Source
	if opts.ConfigFile != "" {
		fileSource, err := LoadFile(opts.ConfigFile)
		if err != nil {
			return BotConfig{}, fmt.Errorf("%w: %s: %w", entity.ErrConfiguration, opts.ConfigFile, err)
		}
		file = fileSource
	}

	src := pkgconfig.Layered{opts.Flags, env, dotEnv, file}
	return resolve(src, logger, opts.Metrics)
}

func resolve(src pkgconfig.Source, logger *slog.Logger, metrics *worker.WorkerMetrics) (BotConfig, error) {
	cfg := BotConfig{
		Credentials: entity.Credentials{
			ConsumerKey:       pkgconfig.LookupString(src, KeyConsumerKey),
			ConsumerSecret:    pkgconfig.LookupString(src, KeyConsumerSecret),
			AccessToken:       pkgconfig.LookupString(src, KeyAccessToken),
			AccessTokenSecret: pkgconfig.LookupString(src, KeyAccessTokenSecret),
			BearerToken:       pkgconfig.LookupString(src, KeyBearerToken),
		},
		AccountID: pkgconfig.LookupString(src, KeyUserID),
		FeedURL:   pkgconfig.LookupString(src, KeyRSS),
	}

	if err := cfg.validateRequired(); err != nil {
		return BotConfig{}, err
	}

	// Optional settings below never fail the load.
	fallbacks := 0
	warn := func(key string, warnings []string) {
		fallbacks++
		for _, w := range warnings {
			logger.Warn("configuration fallback applied", slog.String("field", key), slog.String("warning", w))
		}
		if metrics != nil {
			metrics.RecordFallback(key)
		}
	}

	cfg.Scheduler = worker.LoadConfig(src, logger, metrics)

	cfg.Verbose = loadBool(src, KeyVerbose, false, warn)
	cfg.DryRun = loadBool(src, KeyDryRun, false, warn)
	cfg.PublishOnEmptyTimeline = loadBool(src, KeyPublishOnEmptyTimeline, false, warn)

	cfg.LogLevel = strings.ToLower(loadString(src, KeyLogLevel, "info", pkgconfig.OneOf("debug", "info", "warn", "error"), warn))
	cfg.LogFormat = strings.ToLower(loadString(src, KeyLogFormat, "json", pkgconfig.OneOf("json", "text"), warn))

	port := pkgconfig.LoadInt(src, KeyMetricsPort, 9090, pkgconfig.ValidatePort)
	if port.FallbackApplied {
		warn(KeyMetricsPort, port.Warnings)
	}
	cfg.MetricsPort = port.Value

	cfg.Twitter = twitter.DefaultConfig()
	cfg.Twitter.Verbose = cfg.Verbose
	cfg.Twitter.BaseURL = loadString(src, KeyTwitterBaseURL, twitter.DefaultBaseURL, entity.ValidateURL, warn)
	timeout := pkgconfig.LoadDuration(src, KeyTwitterTimeout, cfg.Twitter.Timeout, pkgconfig.ValidatePositiveDuration)
	if timeout.FallbackApplied {
		warn(KeyTwitterTimeout, timeout.Warnings)
	}
	cfg.Twitter.Timeout = timeout.Value

	if metrics != nil && fallbacks > 0 {
		metrics.SetFallbackActive(true)
	}

	return cfg, nil
}

type warnFunc func(key string, warnings []string)

func loadBool(src pkgconfig.Source, key string, def bool, warn warnFunc) bool {
	r := pkgconfig.LoadBool(src, key, def)
	if r.FallbackApplied {
		warn(key, r.Warnings)
	}
	return r.Value
}

func loadString(src pkgconfig.Source, key, def string, validator func(string) error, warn warnFunc) string {
	r := pkgconfig.LoadString(src, key, def, validator)
	if r.FallbackApplied {
		warn(key, r.Warnings)
	}
	return r.Value
}

func (c BotConfig) validateRequired() error {
	if c.AccountID == "" {
		return &entity.ConfigurationError{Key: KeyUserID}
	}
	if c.FeedURL == "" {
		return &entity.ConfigurationError{Key: KeyRSS}
	}
	if err := c.Credentials.Validate(); err != nil {
		return err
	}
	if err := entity.ValidateURL(c.FeedURL); err != nil {
		return &entity.ConfigurationError{Key: KeyRSS, Message: err.Error()}
	}
	return nil
}

// Validate checks the required keys and the scheduler settings.
func (c BotConfig) Validate() error {
	if err := c.validateRequired(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return &entity.ConfigurationError{Key: worker.EnvPollInterval, Message: err.Error()}
	}
	return nil
}

// LogValue renders the configuration without secrets.
func (c BotConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("account", c.AccountID),
		slog.String("feed_url", c.FeedURL),
		slog.Duration("interval", c.Scheduler.Interval),
		slog.Bool("run_on_start", c.Scheduler.RunOnStart),
		slog.Bool("bearer_token", c.Credentials.HasBearerToken()),
		slog.Bool("publish_on_empty_timeline", c.PublishOnEmptyTimeline),
		slog.Bool("dry_run", c.DryRun),
		slog.Bool("verbose", c.Verbose),
		slog.String("twitter_base_url", c.Twitter.BaseURL),
		slog.Int("metrics_port", c.MetricsPort),
		slog.Int("health_port", c.Scheduler.HealthPort),
	)
}
