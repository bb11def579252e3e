package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ppiankov/riskfeed/internal/cache"
	"github.com/ppiankov/riskfeed/internal/metrics"
	"github.com/ppiankov/riskfeed/internal/model"
)

const (
	// cacheKeyChars is how much of the text identifies a cached result
	cacheKeyChars = 500

	cacheNamespace = "moderation"
)

// Client calls the OpenAI moderation endpoint with caching, throttling,
// rate-limit retries and a circuit breaker. It is owned by the caller and
// safe for concurrent use.
type Client struct {
	api     *openai.Client
	cfg     model.ModerationConfig
	cache   cache.Cache
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger

	// sleep waits between rate-limited attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a moderation client. A nil store gets a bounded memory
// cache sized from cfg.CacheSize.
func NewClient(cfg model.ModerationConfig, store cache.Cache, logger logrus.FieldLogger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = openai.ModerationOmniLatest
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if store == nil {
		store = NewCache(cfg)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "moderation",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// throttling and caller cancellation say nothing about the API's health
			return err == nil || isRateLimited(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("moderation circuit breaker changed state")
		},
	})

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		cache:   store,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker,
		logger:  logger,
		sleep:   sleepContext,
	}, nil
}

// NewCache builds the result cache described by cfg: a bounded memory cache,
// backed by a disk cache when CacheDir is set
func NewCache(cfg model.ModerationConfig) cache.Cache {
	mem := cache.NewBoundedMemoryCache(cfg.CacheSize, cfg.CacheTTL, 10*time.Minute)
	if cfg.CacheDir == "" {
		return mem
	}
	return cache.NewLayeredCache(mem, cache.NewDiskCache(cfg.CacheDir, cfg.CacheTTL))
}

// Classify returns the moderation verdict for text. Empty text is never sent
// and is reported as not flagged.
func (c *Client) Classify(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, nil
	}

	key := cache.Key(cacheNamespace, truncate(text, cacheKeyChars))
	if data, ok := c.cache.Get(key); ok {
		var cached Result
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.ModerationRequests.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	res, err := c.classifyWithRetry(ctx, truncate(text, c.cfg.MaxInputChars))
	if err != nil {
		metrics.ModerationRequests.WithLabelValues("error").Inc()
		return Result{}, err
	}

	if res.Flagged {
		metrics.ModerationRequests.WithLabelValues("flagged").Inc()
	} else {
		metrics.ModerationRequests.WithLabelValues("clean").Inc()
	}

	if data, err := json.Marshal(res); err == nil {
		if err := c.cache.Set(key, data, 0); err != nil {
			c.logger.WithError(err).Debug("failed to cache moderation result")
		}
	}

	return res, nil
}

func (c *Client) classifyWithRetry(ctx context.Context, input string) (Result, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("moderation throttle: %w", err)
		}

		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.api.Moderations(ctx, openai.ModerationRequest{
				Input: input,
				Model: c.cfg.Model,
			})
		})
		if err == nil {
			return convert(out.(openai.ModerationResponse))
		}

		if !isRateLimited(err) {
			return Result{}, fmt.Errorf("moderation API error: %w", err)
		}

		lastErr = err
		wait := time.Duration(1<<attempt) * time.Second
		c.logger.WithFields(logrus.Fields{"attempt": attempt + 1, "wait": wait}).
			Warn("moderation rate limit hit, backing off")
		if err := c.sleep(ctx, wait); err != nil {
			return Result{}, err
		}
	}

	return Result{}, fmt.Errorf("%w after %d attempts: %v", ErrRateLimited, c.cfg.MaxRetries, lastErr)
}

// convert keeps only the flagged categories with their scores
func convert(resp openai.ModerationResponse) (Result, error) {
	if len(resp.Results) == 0 {
		return Result{}, fmt.Errorf("moderation API returned no results")
	}
	r := resp.Results[0]
	if !r.Flagged {
		return Result{}, nil
	}

	flags, err := toMap[bool](r.Categories)
	if err != nil {
		return Result{}, err
	}
	scores, err := toMap[float64](r.CategoryScores)
	if err != nil {
		return Result{}, err
	}

	categories := make(map[string]float64)
	for name, flagged := range flags {
		if flagged {
			categories[name] = scores[name]
		}
	}

	return Result{Flagged: true, CategoryScores: categories}, nil
}

// toMap turns a category struct into a map keyed by its JSON field names
func toMap[V any](v any) (map[string]V, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	out := make(map[string]V)
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return out, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// truncate cuts s to at most n characters
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
