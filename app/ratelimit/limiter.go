package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Limiter gates outbound fetches with one token bucket per registrable
// source domain. Subdomains of the same publisher share one budget.
// Buckets are created lazily on first use and retained for the process
// lifetime.
type Limiter struct {
	rps     rate.Limit
	burst   int
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Wait suspends until a token is available for the URL's domain. It only
// fails on context cancellation or an unparseable URL; rate limiting
// itself can delay but never fail.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := registrableDomain(rawURL)
	if err != nil {
		return err
	}
	return l.bucket(domain).Wait(ctx)
}

// Allow reports whether a request to the URL's domain may proceed
// immediately, consuming a token when it may.
func (l *Limiter) Allow(rawURL string) (bool, error) {
	domain, err := registrableDomain(rawURL)
	if err != nil {
		return false, err
	}
	return l.bucket(domain).Allow(), nil
}

func (l *Limiter) bucket(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[domain]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[domain] = bucket
	}
	return bucket
}

// registrableDomain extracts the public-suffix-aware domain from a URL,
// so www.example.com and feeds.example.com share one budget. Hosts the
// suffix list cannot resolve (IPs, localhost) fall back to the full host.
func registrableDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	host = strings.ToLower(host)

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return domain, nil
}
