// Command bot watches a blog's RSS feed and announces new posts on X (Twitter).
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"blog-tweeter/internal/config"
	"blog-tweeter/internal/infra/worker"
	"blog-tweeter/internal/observability/logging"
	pkgconfig "blog-tweeter/internal/pkg/config"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.SetDefault(initLogger())

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("bot stopped", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT. run
// replaces it with the fully configured, redacting logger once the
// configuration has been resolved.
func initLogger() *slog.Logger {
	return logging.New(logging.Options{
		Level:  os.Getenv(config.KeyLogLevel),
		Format: os.Getenv(config.KeyLogFormat),
	}, os.Stdout)
}

// flagKeys maps string flags to configuration keys.
var flagKeys = []struct {
	name  string
	key   string
	usage string
}{
	{"user-id", config.KeyUserID, "account to watch: numeric id or username"},
	{"rss", config.KeyRSS, "URL of the blog's RSS feed"},
	{"consumer-key", config.KeyConsumerKey, "OAuth consumer key"},
	{"consumer-secret", config.KeyConsumerSecret, "OAuth consumer secret"},
	{"access-token", config.KeyAccessToken, "OAuth access token"},
	{"access-token-secret", config.KeyAccessTokenSecret, "OAuth access token secret"},
	{"bearer-token", config.KeyBearerToken, "app-only bearer token for timeline reads (optional)"},
	{"interval", worker.EnvPollInterval, "wait between cycles, e.g. 2h"},
	{"log-level", config.KeyLogLevel, "debug, info, warn or error"},
}

// boolFlagKeys maps boolean flags to configuration keys.
var boolFlagKeys = []struct {
	name      string
	shorthand string
	key       string
	usage     string
}{
	{"log", "l", config.KeyVerbose, "log the verification response and published text"},
	{"dry-run", "", config.KeyDryRun, "log the update instead of publishing it"},
}

func newRootCommand() *cobra.Command {
	opts := runOptions{
		env:    pkgconfig.EnvSource{},
		stdout: os.Stdout,
	}

	cmd := &cobra.Command{
		Use:           "bot",
		Short:         "Announce new blog posts on X (Twitter)",
		Long:          "bot polls a blog's RSS feed and publishes \"New post - {title}\" with a link whenever the newest post is newer than the account's latest update.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.flags = flagSource(cmd)
			err := run(cmd.Context(), opts)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	f := cmd.Flags()
	for _, fk := range flagKeys {
		f.String(fk.name, "", fk.usage)
	}
	for _, bk := range boolFlagKeys {
		f.BoolP(bk.name, bk.shorthand, false, bk.usage)
	}
	f.StringVar(&opts.configFile, "config", "", "optional YAML config file")
	f.StringVar(&opts.dotEnvFile, "env-file", config.DefaultDotEnvFile, "dotenv file read when present")
	f.BoolVar(&opts.once, "once", false, "run a single cycle and exit")

	cmd.AddCommand(newCheckFeedCommand())
	return cmd
}

// flagSource returns the flags the user actually set, keyed by configuration key.
func flagSource(cmd *cobra.Command) pkgconfig.MapSource {
	f := cmd.Flags()
	src := pkgconfig.MapSource{}
	for _, fk := range flagKeys {
		if f.Changed(fk.name) {
			v, _ := f.GetString(fk.name)
			src[fk.key] = v
		}
	}
	for _, bk := range boolFlagKeys {
		if f.Changed(bk.name) {
			v, _ := f.GetBool(bk.name)
			src[bk.key] = strconv.FormatBool(v)
		}
	}
	return src
}
