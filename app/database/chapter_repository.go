package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

var _ ChapterRepository = (*ChapterRepo)(nil)

// ChapterRepo handles database operations for chapters and their stored
// body locations
type ChapterRepo struct {
	db *DB
}

func NewChapterRepository(db *DB) *ChapterRepo {
	return &ChapterRepo{db: db}
}

// GetSourceURLs loads the set of known chapter source URLs for a book.
// Source URL is the dedup key: listings may repeat or reorder entries
// across polls.
func (r *ChapterRepo) GetSourceURLs(bookID string) (map[string]struct{}, error) {
	rows, err := r.db.Query(`
		SELECT source_url
		FROM chapters
		WHERE book_id = $1
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter source urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan source url: %w", err)
		}
		urls[url] = struct{}{}
	}
	return urls, rows.Err()
}

// CreateWithBody commits the chapter row, its body pointer and one queue
// entry per subscriber in one transaction. Callers store the body bytes in
// the object store first, so a chapter row never exists without a
// retrievable body. Including the queue fan-out in the same transaction
// means a crash can never commit a chapter that a subscriber will not
// receive.
func (r *ChapterRepo) CreateWithBody(chapter NewChapter, bucket, key string, subscriberIDs []string) (*Chapter, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stored Chapter
	err = tx.QueryRow(`
		INSERT INTO chapters (book_id, name, author, source_url, kind, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, seq, book_id, name, author, source_url, kind, published_at, discovered_at
	`, chapter.BookID, chapter.Name, chapter.Author, chapter.SourceURL,
		chapter.Kind, chapter.PublishedAt).Scan(
		&stored.ID, &stored.Seq, &stored.BookID, &stored.Name, &stored.Author,
		&stored.SourceURL, &stored.Kind, &stored.PublishedAt, &stored.DiscoveredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chapter: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO chapter_bodies (chapter_id, bucket, key)
		VALUES ($1, $2, $3)
	`, stored.ID, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to insert chapter body: %w", err)
	}

	if len(subscriberIDs) > 0 {
		_, err = tx.Exec(`
			INSERT INTO unsent_chapters (user_id, chapter_id)
			SELECT unnest($1::text[]), $2
			ON CONFLICT (user_id, chapter_id) DO NOTHING
		`, pq.Array(subscriberIDs), stored.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue chapter for subscribers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit chapter: %w", err)
	}

	return &stored, nil
}

func (r *ChapterRepo) GetChapter(chapterID string) (*Chapter, error) {
	var chapter Chapter
	err := r.db.QueryRow(`
		SELECT id, seq, book_id, name, author, source_url, kind, published_at, discovered_at
		FROM chapters
		WHERE id = $1
	`, chapterID).Scan(
		&chapter.ID, &chapter.Seq, &chapter.BookID, &chapter.Name,
		&chapter.Author, &chapter.SourceURL, &chapter.Kind,
		&chapter.PublishedAt, &chapter.DiscoveredAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	return &chapter, nil
}

func (r *ChapterRepo) GetChapterCount(bookID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM chapters WHERE book_id = $1
	`, bookID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return count, nil
}
