package sources

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/text/unicode/norm"

	"github.com/JordanSekky/cereal-convert/app/database"
)

// parseFeedListing turns an RSS/Atom document into candidates, oldest
// first. Feeds usually list newest entries first; the order is flipped
// when the entry dates say so, so downstream discovery order matches
// publication order.
func parseFeedListing(data []byte, book *database.Book) ([]Candidate, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed for %s: %v: %w", book.Slug, err, ErrMalformedContent)
	}

	candidates := make([]Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}

		candidate := Candidate{
			SourceURL: item.Link,
			Name:      normalizeTitle(item.Title),
			Author:    book.Author,
		}
		if candidate.Name == "" {
			candidate.Name = item.Link
		}
		if item.Author != nil && strings.TrimSpace(item.Author.Name) != "" {
			candidate.Author = strings.TrimSpace(item.Author.Name)
		}
		if item.PublishedParsed != nil {
			published := *item.PublishedParsed
			candidate.PublishedAt = &published
		}

		candidates = append(candidates, candidate)
	}

	if newestFirst(candidates) {
		reverse(candidates)
	}

	return candidates, nil
}

func normalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

func newestFirst(candidates []Candidate) bool {
	if len(candidates) < 2 {
		return false
	}
	first := candidates[0].PublishedAt
	last := candidates[len(candidates)-1].PublishedAt
	if first == nil || last == nil {
		return false
	}
	return first.After(*last)
}

func reverse(candidates []Candidate) {
	for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
}
