// Package jira is a thin read-only client for the Jira Cloud REST API.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	defaultRetryInterval = 500 * time.Millisecond
	maxErrorBody         = 512
)

// Getter is the part of the client the reporting pipeline depends on.
type Getter interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Email   string
	Token   string
	// Timeout bounds every single HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts for transient failures.
	// Negative disables retries.
	MaxRetries int
	// RetryInterval is the initial backoff interval. Zero means 500ms.
	RetryInterval time.Duration
	// HTTPClient overrides the underlying client; its Timeout is left untouched.
	HTTPClient *http.Client
}

// Client issues authenticated GET requests against a single Jira site.
type Client struct {
	baseURL       string
	email         string
	token         string
	http          *http.Client
	maxRetries    int
	retryInterval time.Duration
}

// NewClient validates opts and returns a ready client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("jira base url cannot be empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jira base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("jira base url must be http or https: %s", base)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:       base,
		email:         opts.Email,
		token:         opts.Token,
		http:          hc,
		maxRetries:    retries,
		retryInterval: interval,
	}, nil
}

// BaseURL returns the site root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// GetJSON performs GET baseURL+path?query and decodes the JSON body into v.
// Connection failures, timeouts, 429 and 5xx responses are retried with
// exponential backoff up to MaxRetries times. 401/403 yield *AuthenticationError
// and are never retried.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := c.apiURL(path, query)
	log := slog.With("op", "jira.GetJSON", "path", path)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		log.Debug("Requesting", "attempt", attempt, "url", u)
		err := c.getOnce(ctx, path, u, v)
		if err == nil {
			return nil
		}
		if IsTransient(err) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		log.Debug("Retrying jira request", "attempt", attempt, "wait", wait, "err", err)
	}
	return backoff.RetryNotify(op, policy, notify)
}

func (c *Client) apiURL(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) getOnce(ctx context.Context, path, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create jira request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.email != "" || c.token != "" {
		req.SetBasicAuth(c.email, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransientError{Path: path, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return &TransientError{Path: path, Err: fmt.Errorf("failed to read jira response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthenticationError{Status: resp.StatusCode, Path: path}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return &TransientError{Path: path, Err: newStatusError(path, resp.StatusCode, body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return newStatusError(path, resp.StatusCode, body)
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse jira response from %s: %w", path, err)
	}
	return nil
}

func newStatusError(path string, status int, body []byte) *StatusError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return &StatusError{Path: path, Status: status, Body: msg}
}
