package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/cfg"
	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/ratelimit"
)

// Fetcher retrieves chapter listings and chapter bodies from external
// sources. Every request first acquires a rate limiter permit for the
// URL's domain.
type Fetcher struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, limiter *ratelimit.Limiter) *Fetcher {
	c := cfg.Get()

	return &Fetcher{
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  c.UserAgent,
		timeout:    time.Duration(c.FetchTimeout) * time.Second,
	}
}

// ListChapters returns a book source's current chapter listing in
// discovery order, oldest first.
func (f *Fetcher) ListChapters(ctx context.Context, book *database.Book) ([]Candidate, error) {
	data, err := f.get(ctx, book.SourceURL)
	if err != nil {
		return nil, err
	}

	switch book.SourceKind {
	case books.SourceKindFeed:
		return parseFeedListing(data, book)
	case books.SourceKindPage:
		return parsePageListing(data, book)
	default:
		return nil, fmt.Errorf("unknown source kind %q for book %s", book.SourceKind, book.Slug)
	}
}

// FetchBody retrieves and extracts a chapter's body text. The book's
// body selector is tried first; readability extraction is the fallback
// for sources without a usable selector.
func (f *Fetcher) FetchBody(ctx context.Context, book *database.Book, chapterURL string) (string, error) {
	data, err := f.get(ctx, chapterURL)
	if err != nil {
		return "", err
	}

	return extractBody(data, book, chapterURL)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limiter wait for %s: %w", url, err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", url, err, ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d: %w", url, resp.StatusCode, ErrUnreachable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", url, err, ErrUnreachable)
	}

	return data, nil
}
