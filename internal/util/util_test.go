package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"riskfeed/0.1 (research; +https://example.com)": "riskfeed",
		"curl/8.0":  "curl",
		"plainbot":  "plainbot",
		"":          "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://plain-proxy:8080", "http://tls-proxy:8443")

	req, _ := http.NewRequest("GET", "https://www.reddit.com/r/news.json", nil)
	u, err := proxy(req)
	if err != nil || u.Host != "tls-proxy:8443" {
		t.Errorf("https request proxied via %v (err %v)", u, err)
	}

	req, _ = http.NewRequest("GET", "http://example.com/", nil)
	u, err = proxy(req)
	if err != nil || u.Host != "plain-proxy:8080" {
		t.Errorf("http request proxied via %v (err %v)", u, err)
	}
}

func TestNewHTTPClient_StopsRedirectLoops(t *testing.T) {
	var hits int32
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, fmt.Sprintf("%s/loop/%d", server.URL, n), http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second, "", "")
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected the last redirect response, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&hits) != 4 {
		t.Errorf("expected 4 requests (1 + 3 redirects), got %d", hits)
	}
}

func TestRobotsChecker(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&fetches, 1)
			fmt.Fprint(w, "User-agent: riskfeed\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "riskfeed/0.1 (research)")
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/r/news/search.json")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("expected public path to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(ctx, server.URL+"/private/data")
	if allowed {
		t.Error("expected /private to be disallowed")
	}

	if atomic.LoadInt32(&fetches) != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", fetches)
	}

	checker.Clear()
	_, _, _ = checker.CanFetch(ctx, server.URL+"/")
	if atomic.LoadInt32(&fetches) != 2 {
		t.Errorf("expected refetch after Clear, got %d fetches", fetches)
	}
}

func TestRobotsChecker_MissingFileAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "riskfeed")
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("expected allow on 404 robots.txt, got %v, %v", allowed, err)
	}
}
