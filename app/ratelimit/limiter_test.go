package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestBurstCapacity(t *testing.T) {
	limiter := NewLimiter(1, 3)

	allowed := 0
	for i := 0; i < 10; i++ {
		ok, err := limiter.Allow("https://example.com/chapter")
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if ok {
			allowed++
		}
	}

	if allowed != 3 {
		t.Errorf("Expected burst of 3 instantaneous requests, got: %d", allowed)
	}
}

func TestDomainsAreIndependent(t *testing.T) {
	limiter := NewLimiter(1, 1)

	ok, err := limiter.Allow("https://example.com/a")
	if err != nil || !ok {
		t.Fatalf("Expected first example.com request allowed, got ok=%v err=%v", ok, err)
	}
	ok, _ = limiter.Allow("https://example.com/b")
	if ok {
		t.Error("Expected second example.com request to be limited")
	}

	// A different publisher has its own bucket.
	ok, err = limiter.Allow("https://other.org/a")
	if err != nil || !ok {
		t.Errorf("Expected other.org request allowed, got ok=%v err=%v", ok, err)
	}
}

func TestSubdomainsShareBudget(t *testing.T) {
	limiter := NewLimiter(1, 1)

	ok, err := limiter.Allow("https://www.example.com/feed")
	if err != nil || !ok {
		t.Fatalf("Expected first request allowed, got ok=%v err=%v", ok, err)
	}
	ok, _ = limiter.Allow("https://chapters.example.com/list")
	if ok {
		t.Error("Expected subdomain of the same publisher to share the budget")
	}
}

func TestWaitBlocksUntilRefill(t *testing.T) {
	limiter := NewLimiter(50, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://example.com/"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "https://example.com/"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("Expected second request to wait for refill, waited only %v", elapsed)
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "https://example.com/"); err != nil {
		t.Fatalf("Expected first request to pass, got: %v", err)
	}
	if err := limiter.Wait(ctx, "https://example.com/"); err == nil {
		t.Error("Expected context cancellation error while waiting for refill")
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://www.example.com/path", "example.com"},
		{"https://feeds.news.example.co.uk/rss", "example.co.uk"},
		{"http://localhost:8080/feed", "localhost"},
		{"http://127.0.0.1/feed", "127.0.0.1"},
	}

	for _, tt := range tests {
		got, err := registrableDomain(tt.rawURL)
		if err != nil {
			t.Errorf("%s: expected no error, got: %v", tt.rawURL, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expected domain %q, got %q", tt.rawURL, tt.want, got)
		}
	}

	if _, err := registrableDomain("::not a url"); err == nil {
		t.Error("Expected error for invalid URL")
	}
}
