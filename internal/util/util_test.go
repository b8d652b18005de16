package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		hits.Add(1)
		_, _ = w.Write([]byte("User-agent: claimcheck\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker("claimcheck/0.1 (+https://example.com)", 5*time.Second)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/news/story")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("Expected /news/story to be allowed for claimcheck")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	if checker.IsAllowed(ctx, server.URL+"/private/x") {
		t.Error("Expected /private/x to be disallowed")
	}

	if hits.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", hits.Load())
	}

	checker.Clear()
	_ = checker.IsAllowed(ctx, server.URL+"/")
	if hits.Load() != 2 {
		t.Errorf("Expected refetch after Clear, got %d fetches", hits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("claimcheck", 5*time.Second)
	if !checker.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("Expected missing robots.txt to allow")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	checker := NewRobotsChecker("claimcheck", 200*time.Millisecond)
	if !checker.IsAllowed(context.Background(), "http://127.0.0.1:1/page") {
		t.Error("Expected unreachable robots.txt to allow")
	}
	if _, _, err := checker.CanFetch(context.Background(), "/relative"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"claimcheck/0.1 (+https://x)": "claimcheck",
		"Mozilla/5.0 Foo":             "Mozilla",
		"":                            "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3129", "internal.example")

	tests := []struct {
		scheme, host string
		want         string
	}{
		{"https", "nasa.gov", "secure-proxy:3129"},
		{"http", "nasa.gov", "proxy:3128"},
		{"https", "kb.internal.example", ""},
		{"http", "127.0.0.1:8080", ""},
	}
	for _, tt := range tests {
		req := &http.Request{URL: &url.URL{Scheme: tt.scheme, Host: tt.host}}
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("%s://%s: %v", tt.scheme, tt.host, err)
		}
		var host string
		if got != nil {
			host = got.Host
		}
		if host != tt.want {
			t.Errorf("%s://%s proxied via %q, want %q", tt.scheme, tt.host, host, tt.want)
		}
	}
}

func TestNewProxyFunc_HTTPSFallsBackToHTTPProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "", "")

	got, err := proxy(&http.Request{URL: &url.URL{Scheme: "https", Host: "who.int"}})
	if err != nil || got == nil || got.Host != "proxy:3128" {
		t.Errorf("https proxy = %v, %v", got, err)
	}
}
