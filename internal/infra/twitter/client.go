package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"blog-tweeter/internal/observability/logging"
	"blog-tweeter/internal/observability/metrics"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 1 << 20

// User is the subset of the v2 user object the bot reads.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Tweet is the subset of the v2 tweet object the bot reads.
type Tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Title   string `json:"title"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	} `json:"errors"`
}

// envelope wraps every v2 response. Data stays raw so callers can tell an
// empty result from an error-only body.
type envelope struct {
	Data json.RawMessage `json:"data"`
	problem
}

type apiClient struct {
	baseURL string
	secrets []string
	now     func() time.Time
}

// do sends one request and decodes the data member of the response into out.
// It returns the raw body for verbose logging.
func (c *apiClient) do(ctx context.Context, hc *http.Client, endpoint, method, path string, query url.Values, payload, out any) ([]byte, error) {
	start := time.Now()
	body, err := c.roundTrip(ctx, hc, endpoint, method, path, query, payload, out)
	metrics.RecordTwitterRequest(endpoint, metrics.StatusFor(err), time.Since(start))
	return body, err
}

func (c *apiClient) roundTrip(ctx context.Context, hc *http.Client, endpoint, method, path string, query url.Values, payload, out any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute %s request: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, c.apiError(endpoint, resp, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body, fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	if isEmptyJSON(env.Data) {
		if len(env.Errors) > 0 {
			return body, c.apiError(endpoint, resp, body)
		}
		return body, nil
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return body, fmt.Errorf("decode %s data: %w", endpoint, err)
		}
	}
	return body, nil
}

func (c *apiClient) apiError(endpoint string, resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		RetryAfter: c.retryAfter(resp),
	}

	var p problem
	if err := json.Unmarshal(body, &p); err == nil {
		apiErr.Title = p.Title
		apiErr.Detail = p.Detail
		if apiErr.Detail == "" && len(p.Errors) > 0 {
			e := p.Errors[0]
			apiErr.Title = e.Title
			apiErr.Detail = e.Detail
			if apiErr.Detail == "" {
				apiErr.Detail = e.Message
			}
		}
	} else {
		apiErr.Detail = truncate(strings.TrimSpace(string(body)), 200)
	}

	apiErr.Detail = logging.Redact(apiErr.Detail, c.secrets)
	return apiErr
}

// retryAfter reads x-rate-limit-reset (epoch seconds) or Retry-After (seconds).
func (c *apiClient) retryAfter(resp *http.Response) time.Duration {
	if reset := resp.Header.Get("x-rate-limit-reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(c.now()); d > 0 {
				return d
			}
		}
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == "[]"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// bearerTransport adds app-only authentication to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
