// Package reddit collects submissions and comments from Reddit's public JSON
// endpoints: keyword search, user history and recent activity.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/riskfeed/internal/metrics"
	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/util"
	"github.com/ppiankov/riskfeed/internal/worker"
)

var (
	// ErrNotFound is returned for 404s: deleted accounts, private profiles, removed posts
	ErrNotFound = errors.New("not found")

	// ErrDisallowed is returned when robots.txt forbids the request
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrInvalidUsername is returned for placeholder or empty account names
	ErrInvalidUsername = errors.New("invalid username")
)

const (
	rateLimitBackoff   = 10 * time.Second
	serverErrorBackoff = 3 * time.Second
	transportBackoff   = 2 * time.Second
)

// Client talks to the content API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxRetries int
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	logger     logrus.FieldLogger

	// sleep waits out retry backoff; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a collector client from the HTTP config. A nil limiter
// disables throttling.
func NewClient(cfg model.HTTPConfig, limiter *worker.Limiter, logger logrus.FieldLogger) *Client {
	if limiter == nil {
		limiter = worker.NewLimiter(0, 1)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5_000_000
	}

	httpClient := util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy)

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		maxBytes:   cfg.MaxBodyBytes,
		limiter:    limiter,
		logger:     logger,
		sleep:      sleepContext,
	}
	if cfg.RespectRobots {
		c.robots = util.NewRobotsChecker(httpClient, cfg.UserAgent)
	}
	return c
}

// permalink turns a site-relative path into an absolute URL
func (c *Client) permalink(path string) string {
	return c.baseURL + path
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	rawURL := c.baseURL + path
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	body, err := c.get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// get fetches rawURL, retrying rate limits, server errors and transport failures
func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if err := c.checkRobots(ctx, rawURL); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}

		body, status, err := c.do(ctx, rawURL, accept)
		entry := c.logger.WithFields(logrus.Fields{"url": rawURL, "attempt": attempt})

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			metrics.CollectorRequests.WithLabelValues("error").Inc()
			entry.WithError(err).Warn("request failed")
			lastErr = err
			if err := c.backoff(ctx, attempt, transportBackoff); err != nil {
				return nil, err
			}
			continue
		}

		metrics.CollectorRequests.WithLabelValues(metrics.StatusClass(status)).Inc()

		switch {
		case status == http.StatusTooManyRequests:
			wait := rateLimitBackoff * time.Duration(attempt)
			entry.WithField("wait", wait).Warn("rate limited")
			lastErr = fmt.Errorf("unexpected status: %d", status)
			if err := c.backoff(ctx, attempt, wait); err != nil {
				return nil, err
			}
		case status == http.StatusNotFound:
			return nil, ErrNotFound
		case isRetryableServerError(status):
			wait := serverErrorBackoff * time.Duration(attempt)
			entry.WithFields(logrus.Fields{"status": status, "wait": wait}).Warn("server error")
			lastErr = fmt.Errorf("unexpected status: %d", status)
			if err := c.backoff(ctx, attempt, wait); err != nil {
				return nil, err
			}
		case status < 200 || status >= 300:
			return nil, fmt.Errorf("unexpected status: %d", status)
		default:
			return body, nil
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// backoff waits d before the next attempt; there is no wait after the last one
func (c *Client) backoff(ctx context.Context, attempt int, d time.Duration) error {
	if attempt >= c.maxRetries {
		return nil
	}
	return c.sleep(ctx, d)
}

func (c *Client) do(ctx context.Context, rawURL, accept string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) checkRobots(ctx context.Context, rawURL string) error {
	if c.robots == nil {
		return nil
	}
	allowed, delay, err := c.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
	}
	if delay > 0 {
		if parsed, err := url.Parse(rawURL); err == nil {
			c.limiter.SlowHost(parsed.Host, delay)
		}
	}
	return nil
}

func isRetryableServerError(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
