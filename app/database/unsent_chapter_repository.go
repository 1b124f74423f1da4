package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var _ QueueRepository = (*UnsentChapterRepo)(nil)

// UnsentChapterRepo handles database operations for the per-user
// delivery queue
type UnsentChapterRepo struct {
	db *DB
}

func NewUnsentChapterRepository(db *DB) *UnsentChapterRepo {
	return &UnsentChapterRepo{db: db}
}

// GetPending returns the user's queued chapters for one book joined with
// chapter metadata and body location, ordered by discovery order.
func (r *UnsentChapterRepo) GetPending(userID, bookID string) ([]PendingChapter, error) {
	rows, err := r.db.Query(`
		SELECT u.id, c.id, c.seq, c.book_id, c.name, c.author, c.source_url,
		       c.kind, c.published_at, c.discovered_at, b.bucket, b.key
		FROM unsent_chapters u
		JOIN chapters c ON c.id = u.chapter_id
		JOIN chapter_bodies b ON b.chapter_id = c.id
		WHERE u.user_id = $1 AND c.book_id = $2
		ORDER BY c.seq
	`, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending chapters: %w", err)
	}
	defer rows.Close()

	var pending []PendingChapter
	for rows.Next() {
		var p PendingChapter
		err := rows.Scan(&p.UnsentID, &p.Chapter.ID, &p.Chapter.Seq,
			&p.Chapter.BookID, &p.Chapter.Name, &p.Chapter.Author,
			&p.Chapter.SourceURL, &p.Chapter.Kind, &p.Chapter.PublishedAt,
			&p.Chapter.DiscoveredAt, &p.Body.Bucket, &p.Body.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending chapter row: %w", err)
		}
		p.Body.ChapterID = p.Chapter.ID
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// ConsumeGroup deletes a delivered group's queue entries and advances the
// subscription cursor in one transaction, so a group is never partially
// consumed. The cursor is only moved forward in discovery order.
func (r *UnsentChapterRepo) ConsumeGroup(userID, bookID string, unsentIDs []string, lastChapterID string) error {
	if len(unsentIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		DELETE FROM unsent_chapters
		WHERE user_id = $1 AND id = ANY($2::uuid[])
	`, userID, pq.Array(unsentIDs))
	if err != nil {
		return fmt.Errorf("failed to delete consumed queue entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if deleted != int64(len(unsentIDs)) {
		return fmt.Errorf("expected to consume %d queue entries, consumed %d", len(unsentIDs), deleted)
	}

	_, err = tx.Exec(`
		UPDATE subscriptions
		SET last_chapter_id = $3
		WHERE user_id = $1 AND book_id = $2
		  AND (last_chapter_id IS NULL
		       OR (SELECT seq FROM chapters WHERE id = $3) >=
		          (SELECT seq FROM chapters WHERE id = subscriptions.last_chapter_id))
	`, userID, bookID, lastChapterID)
	if err != nil {
		return fmt.Errorf("failed to advance subscription cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group consumption: %w", err)
	}
	return nil
}

func (r *UnsentChapterRepo) GetQueueDepth() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM unsent_chapters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return count, nil
}

// GetOldestPendingAge reports how long the oldest queue entry has been
// waiting. Nil when the queue is empty.
func (r *UnsentChapterRepo) GetOldestPendingAge() (*time.Duration, error) {
	var oldest sql.NullTime
	err := r.db.QueryRow(`SELECT MIN(created_at) FROM unsent_chapters`).Scan(&oldest)
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest queue entry: %w", err)
	}
	if !oldest.Valid {
		return nil, nil
	}
	age := time.Since(oldest.Time)
	return &age, nil
}
