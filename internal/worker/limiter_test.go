package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 1 {
		t.Errorf("expected default burst 1 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("https://www.reddit.com/r/news/search.json") {
		t.Error("first request to host should be allowed")
	}
	if limiter.Allow("https://www.reddit.com/user/x/comments.json") {
		t.Error("second immediate request to same host should be throttled")
	}
	if !limiter.Allow("https://api.openai.com/v1/moderations") {
		t.Error("other hosts have their own budget")
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected throttling to 20 rps, three requests took %v", elapsed)
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	url := "http://example.com"
	_ = limiter.Wait(context.Background(), url)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("http://example.com") {
			t.Fatalf("request %d throttled with rate disabled", i)
		}
	}
}

func TestLimiter_SlowHost(t *testing.T) {
	limiter := NewLimiter(100, 1)
	limiter.SlowHost("example.com", time.Hour)

	limiter.Allow("http://example.com/a")
	if limiter.Allow("http://example.com/b") {
		t.Error("expected crawl delay to throttle host")
	}

	// a shorter delay never speeds the host back up
	limiter.SlowHost("example.com", time.Millisecond)
	if limiter.Allow("http://example.com/c") {
		t.Error("SlowHost must not raise the rate")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetHostRate("fast.example", 1000, 10)

	for i := 0; i < 10; i++ {
		if !limiter.Allow("http://fast.example/x") {
			t.Fatalf("request %d throttled despite burst 10", i)
		}
	}
}

func TestLimiter_BadURL(t *testing.T) {
	limiter := NewLimiter(1, 1)
	if err := limiter.Wait(context.Background(), "://bad"); err == nil {
		t.Error("expected error for unparsable URL")
	}
}
