package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JordanSekky/cereal-convert/app/cfg"
	"github.com/JordanSekky/cereal-convert/app/ratelimit"
)

func newTestFetcher() *Fetcher {
	cfg.SetForTesting(&cfg.Cfg{
		UserAgent:    "Cereal/test",
		FetchTimeout: 5,
	})
	return NewFetcher(http.DefaultClient, ratelimit.NewLimiter(1000, 1000))
}

func TestListChaptersFeedSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Cereal/test" {
			t.Errorf("Expected configured user agent, got: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Pale</title>
    <item><title>Chapter 1</title><link>https://example.com/1</link></item>
  </channel>
</rss>`))
	}))
	defer server.Close()

	book := feedBook()
	book.SourceURL = server.URL

	candidates, err := newTestFetcher().ListChapters(context.Background(), book)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got: %d", len(candidates))
	}
	if candidates[0].Name != "Chapter 1" {
		t.Errorf("Expected 'Chapter 1', got: %s", candidates[0].Name)
	}
}

func TestListChaptersHTTPErrorIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	book := feedBook()
	book.SourceURL = server.URL

	_, err := newTestFetcher().ListChapters(context.Background(), book)
	if err == nil {
		t.Fatal("Expected error for HTTP 503")
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got: %v", err)
	}
}

func TestListChaptersNetworkErrorIsUnreachable(t *testing.T) {
	book := feedBook()
	book.SourceURL = "http://127.0.0.1:1/feed"

	_, err := newTestFetcher().ListChapters(context.Background(), book)
	if err == nil {
		t.Fatal("Expected error for unreachable host")
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got: %v", err)
	}
}

func TestFetchBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="entry-content"><p>Chapter text here.</p></div>
		</body></html>`))
	}))
	defer server.Close()

	book := pageBook()

	body, err := newTestFetcher().FetchBody(context.Background(), book, server.URL+"/chapter-1/")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if body == "" {
		t.Error("Expected non-empty body")
	}
}

func TestListChaptersUnknownKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("irrelevant"))
	}))
	defer server.Close()

	book := feedBook()
	book.SourceURL = server.URL
	book.SourceKind = "telegraph"

	if _, err := newTestFetcher().ListChapters(context.Background(), book); err == nil {
		t.Error("Expected error for unknown source kind")
	}
}
