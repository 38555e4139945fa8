package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"blog-tweeter/internal/config"
	"blog-tweeter/internal/domain/entity"
	"blog-tweeter/internal/infra/scraper"
	"blog-tweeter/internal/resilience/circuitbreaker"
	"blog-tweeter/internal/resilience/retry"
	pkgconfig "blog-tweeter/internal/pkg/config"
	"blog-tweeter/internal/usecase/announce"

	"github.com/spf13/cobra"
)

// Feed check statuses.
const (
	FeedStatusOK          = "OK"
	FeedStatusHTTPError   = "HTTP_ERROR"
	FeedStatusEmpty       = "EMPTY"
	FeedStatusMalformed   = "MALFORMED"
	FeedStatusTimeout     = "TIMEOUT"
	FeedStatusCircuitOpen = "CIRCUIT_OPEN"
	FeedStatusFetchError  = "FETCH_ERROR"
)

// FeedDiagnostic is the result of a single feed check.
type FeedDiagnostic struct {
	URL          string `json:"url"`
	Status       string `json:"status"`
	HTTPCode     int    `json:"http_code,omitempty"`
	LatestTitle  string `json:"latest_title,omitempty"`
	LatestURL    string `json:"latest_url,omitempty"`
	LatestDate   string `json:"latest_date,omitempty"`
	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

func newCheckFeedCommand() *cobra.Command {
	var (
		feedURL    string
		dotEnvFile string
		timeout    time.Duration
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "check-feed",
		Short: "Fetch the feed once and show the update that would be published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dotEnv, err := config.LoadDotEnv(dotEnvFile)
			if err != nil {
				return err
			}
			src := pkgconfig.Layered{pkgconfig.MapSource{config.KeyRSS: feedURL}, pkgconfig.EnvSource{}, dotEnv}
			url := pkgconfig.LookupString(src, config.KeyRSS)
			if url == "" {
				return &entity.ConfigurationError{Key: config.KeyRSS}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			poller := scraper.NewRSSPoller(newHTTPClient(), scraper.WithRetryConfig(retry.Config{MaxAttempts: 1}))
			diag := diagnoseFeed(ctx, poller, url)

			if err := writeDiagnostic(cmd.OutOrStdout(), diag, asJSON); err != nil {
				return err
			}
			if diag.Status != FeedStatusOK {
				return fmt.Errorf("feed check failed: %s", diag.Status)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&feedURL, "rss", "", "feed URL (defaults to RSS from the environment)")
	f.StringVar(&dotEnvFile, "env-file", config.DefaultDotEnvFile, "dotenv file read when present")
	f.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func diagnoseFeed(ctx context.Context, poller announce.FeedPoller, url string) FeedDiagnostic {
	diag := FeedDiagnostic{URL: url}

	start := time.Now()
	post, err := poller.LatestPost(ctx, url)
	diag.ResponseTime = time.Since(start).Milliseconds()

	if err != nil {
		diag.Status = feedStatus(err)
		diag.ErrorMessage = err.Error()
		var httpErr *retry.HTTPError
		if errors.As(err, &httpErr) {
			diag.HTTPCode = httpErr.StatusCode
		}
		return diag
	}

	diag.Status = FeedStatusOK
	diag.LatestTitle = post.Title
	diag.LatestURL = post.URL
	diag.LatestDate = post.Date.UTC().Format(time.RFC3339)
	diag.Message = announce.FormatMessage(post)
	return diag
}

func feedStatus(err error) string {
	var httpErr *retry.HTTPError
	switch {
	case errors.Is(err, entity.ErrEmptyFeed):
		return FeedStatusEmpty
	case errors.Is(err, entity.ErrMalformedEntry):
		return FeedStatusMalformed
	case errors.As(err, &httpErr):
		return FeedStatusHTTPError
	case errors.Is(err, context.DeadlineExceeded):
		return FeedStatusTimeout
	case circuitbreaker.IsOpenError(err):
		return FeedStatusCircuitOpen
	default:
		return FeedStatusFetchError
	}
}

func writeDiagnostic(w io.Writer, diag FeedDiagnostic, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(diag)
	}

	_, err := fmt.Fprintf(w, "Feed:     %s\nStatus:   %s\nTime:     %dms\n", diag.URL, diag.Status, diag.ResponseTime)
	if err != nil {
		return err
	}
	if diag.Status != FeedStatusOK {
		_, err = fmt.Fprintf(w, "Error:    %s\n", diag.ErrorMessage)
		return err
	}
	_, err = fmt.Fprintf(w, "Latest:   %s (%s)\n\n%s\n", diag.LatestTitle, diag.LatestDate, diag.Message)
	return err
}
