package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/riskfeed/internal/model"
)

const flaggedBody = `{
  "id": "modr-1",
  "model": "omni-moderation-latest",
  "results": [{
    "flagged": true,
    "categories": {"violence": true, "hate": false, "harassment": true},
    "category_scores": {"violence": 0.98, "hate": 0.01, "harassment": 0.75}
  }]
}`

const cleanBody = `{
  "id": "modr-2",
  "model": "omni-moderation-latest",
  "results": [{
    "flagged": false,
    "categories": {"violence": false},
    "category_scores": {"violence": 0.02}
  }]
}`

const rateLimitBody = `{"error": {"message": "Rate limit reached", "type": "requests"}}`

type fakeAPI struct {
	calls  atomic.Int32
	inputs []string
	reply  func(n int32) (int, string)
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("Expected path /moderations, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Unexpected Authorization header %q", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var req struct {
			Input string `json:"input"`
			Model string `json:"model"`
		}
		_ = json.Unmarshal(body, &req)
		f.inputs = append(f.inputs, req.Input)

		status, payload := f.reply(f.calls.Add(1))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}
}

func newTestClient(t *testing.T, api *fakeAPI, mutate func(*model.ModerationConfig)) (*Client, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	cfg := model.DefaultConfig().Moderation
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	cfg.MinInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	logger, _ := test.NewNullLogger()
	client, err := NewClient(cfg, nil, logger)
	require.NoError(t, err)

	var sleeps []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return client, &sleeps
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(model.DefaultConfig().Moderation, nil, logrus.New())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestClassify_Flagged(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, flaggedBody }}
	client, _ := newTestClient(t, api, nil)

	res, err := client.Classify(context.Background(), "we should kill them all")
	require.NoError(t, err)

	assert.True(t, res.Flagged)
	require.Len(t, res.CategoryScores, 2, "only flagged categories are kept")
	assert.InDelta(t, 0.98, res.CategoryScores["violence"], 1e-6)
	assert.InDelta(t, 0.75, res.CategoryScores["harassment"], 1e-6)
	assert.NotContains(t, res.CategoryScores, "hate")
	assert.Equal(t, []string{"we should kill them all"}, api.inputs)
}

func TestClassify_NotFlagged(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, cleanBody }}
	client, _ := newTestClient(t, api, nil)

	res, err := client.Classify(context.Background(), "a calm sentence")
	require.NoError(t, err)
	assert.False(t, res.Flagged)
	assert.Nil(t, res.CategoryScores)
}

func TestClassify_EmptyTextSkipsAPI(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, flaggedBody }}
	client, _ := newTestClient(t, api, nil)

	res, err := client.Classify(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.Flagged)
	assert.Nil(t, res.CategoryScores)
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestClassify_CachesByPrefix(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, flaggedBody }}
	client, _ := newTestClient(t, api, nil)

	prefix := strings.Repeat("a", cacheKeyChars)
	first, err := client.Classify(context.Background(), prefix+" tail one")
	require.NoError(t, err)
	second, err := client.Classify(context.Background(), prefix+" tail two")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), api.calls.Load(), "same 500-character prefix hits the cache")

	_, err = client.Classify(context.Background(), "something else")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestClassify_TruncatesInput(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusOK, cleanBody }}
	client, _ := newTestClient(t, api, func(cfg *model.ModerationConfig) {
		cfg.MaxInputChars = 10
	})

	_, err := client.Classify(context.Background(), "ÄÖÜ is longer than ten characters")
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "ÄÖÜ is lon", api.inputs[0])
}

func TestClassify_RetriesOnRateLimit(t *testing.T) {
	api := &fakeAPI{reply: func(n int32) (int, string) {
		if n < 3 {
			return http.StatusTooManyRequests, rateLimitBody
		}
		return http.StatusOK, flaggedBody
	}}
	client, sleeps := newTestClient(t, api, nil)

	res, err := client.Classify(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, res.Flagged)
	assert.Equal(t, int32(3), api.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
}

func TestClassify_GivesUpAfterRetries(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusTooManyRequests, rateLimitBody }}
	client, sleeps := newTestClient(t, api, nil)

	_, err := client.Classify(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), api.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *sleeps)
}

func TestClassify_OtherErrorsFailFast(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		return http.StatusInternalServerError, `{"error": {"message": "boom", "type": "server_error"}}`
	}}
	client, sleeps := newTestClient(t, api, nil)

	_, err := client.Classify(context.Background(), "text")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(1), api.calls.Load())
	assert.Empty(t, *sleeps)

	// failures are not cached
	_, _ = client.Classify(context.Background(), "text")
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestClassify_BreakerOpens(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) {
		return http.StatusBadGateway, `{"error": {"message": "bad gateway", "type": "server_error"}}`
	}}
	client, _ := newTestClient(t, api, func(cfg *model.ModerationConfig) {
		cfg.BreakerFailures = 2
		cfg.BreakerTimeout = time.Hour
	})

	for i := 0; i < 2; i++ {
		_, err := client.Classify(context.Background(), "text")
		require.Error(t, err)
	}

	_, err := client.Classify(context.Background(), "text")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), api.calls.Load(), "open breaker does not reach the API")
}

func TestClassify_ContextCancelledDuringBackoff(t *testing.T) {
	api := &fakeAPI{reply: func(int32) (int, string) { return http.StatusTooManyRequests, rateLimitBody }}
	client, _ := newTestClient(t, api, nil)
	client.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Classify(ctx, "text")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", 0))
	assert.Equal(t, "日本", truncate("日本語", 2))
}

func TestClassifierFunc(t *testing.T) {
	var c Classifier = ClassifierFunc(func(ctx context.Context, text string) (Result, error) {
		return Result{Flagged: text == "bad"}, nil
	})
	res, err := c.Classify(context.Background(), "bad")
	require.NoError(t, err)
	assert.True(t, res.Flagged)
}
