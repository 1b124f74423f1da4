package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/sources"
	"github.com/JordanSekky/cereal-convert/app/storage"
)

// ChapterSource lists chapter candidates for a book and fetches chapter
// body text. Satisfied by sources.Fetcher.
type ChapterSource interface {
	ListChapters(ctx context.Context, book *database.Book) ([]sources.Candidate, error)
	FetchBody(ctx context.Context, book *database.Book, chapterURL string) (string, error)
}

var _ ChapterSource = (*sources.Fetcher)(nil)

// Ingestor runs one poll cycle for a book: list candidates, drop the
// already known ones, persist the rest body-first, and fan each new
// chapter out to every subscription's delivery queue.
type Ingestor struct {
	source        ChapterSource
	chapters      database.ChapterRepository
	subscriptions database.SubscriptionRepository
	store         storage.Store
}

func NewIngestor(source ChapterSource, chapters database.ChapterRepository,
	subscriptions database.SubscriptionRepository, store storage.Store) *Ingestor {
	return &Ingestor{
		source:        source,
		chapters:      chapters,
		subscriptions: subscriptions,
		store:         store,
	}
}

// Run polls the book's source once. Returns the number of chapters
// ingested. A candidate whose body cannot be fetched is skipped for
// this cycle; a storage or database failure aborts the cycle so no
// chapter row ever exists without its body. The queue fan-out commits
// in the same transaction as the chapter row, so a chapter is never
// committed without its subscribers' queue entries.
func (in *Ingestor) Run(ctx context.Context, book *database.Book) (int, error) {
	candidates, err := in.source.ListChapters(ctx, book)
	if err != nil {
		return 0, fmt.Errorf("failed to list chapters for %s: %w", book.Slug, err)
	}

	known, err := in.chapters.GetSourceURLs(book.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load known chapters for %s: %w", book.Slug, err)
	}

	subs, err := in.subscriptions.GetSubscriptions(book.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to load subscriptions for %s: %w", book.Slug, err)
	}
	subscriberIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		subscriberIDs = append(subscriberIDs, sub.UserID)
	}

	ingested := 0
	for _, candidate := range candidates {
		if _, ok := known[candidate.SourceURL]; ok {
			continue
		}

		body, err := in.source.FetchBody(ctx, book, candidate.SourceURL)
		if err != nil {
			slog.Warn("Skipping chapter, body fetch failed", "book", book.Slug,
				"url", candidate.SourceURL, "error", err)
			continue
		}

		loc, err := in.store.Store(ctx, []byte(body), ".html")
		if err != nil {
			return ingested, fmt.Errorf("failed to store chapter body for %s: %w", book.Slug, err)
		}

		chapter, err := in.chapters.CreateWithBody(database.NewChapter{
			BookID:      book.ID,
			Name:        candidate.Name,
			Author:      candidate.Author,
			SourceURL:   candidate.SourceURL,
			Kind:        book.SourceKind,
			PublishedAt: candidate.PublishedAt,
		}, loc.Bucket, loc.Key, subscriberIDs)
		if err != nil {
			return ingested, fmt.Errorf("failed to create chapter for %s: %w", book.Slug, err)
		}

		known[candidate.SourceURL] = struct{}{}
		ingested++

		slog.Debug("Ingested chapter", "book", book.Slug, "chapter", chapter.Name,
			"seq", chapter.Seq)
	}

	if ingested > 0 {
		slog.Info("Ingested new chapters", "book", book.Slug, "count", ingested,
			"subscribers", len(subscriberIDs))
	}

	return ingested, nil
}
