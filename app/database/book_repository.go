package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/JordanSekky/cereal-convert/app/books"
)

var _ BookRepository = (*BookRepo)(nil)

// BookRepo handles database operations for books
type BookRepo struct {
	db *DB
}

func NewBookRepository(db *DB) *BookRepo {
	return &BookRepo{db: db}
}

const bookColumns = `id, slug, name, author, source_kind, source_url, chapter_selector,
	       body_selector, enabled, poll_interval_seconds, poll_claimed_at,
	       last_polled_at, next_poll_at, created_at, updated_at`

func (r *BookRepo) scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	var book Book
	err := row.Scan(
		&book.ID, &book.Slug, &book.Name, &book.Author, &book.SourceKind,
		&book.SourceURL, &book.ChapterSelector, &book.BodySelector,
		&book.Enabled, &book.PollInterval, &book.PollClaimedAt,
		&book.LastPolledAt, &book.NextPollAt, &book.CreatedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *BookRepo) GetBook(slug string) (*Book, error) {
	book, err := r.scanBook(r.db.QueryRow(`
		SELECT `+bookColumns+`
		FROM books
		WHERE slug = $1
	`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

func (r *BookRepo) GetBookByID(bookID string) (*Book, error) {
	book, err := r.scanBook(r.db.QueryRow(`
		SELECT `+bookColumns+`
		FROM books
		WHERE id = $1
	`, bookID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book by id: %w", err)
	}
	return book, nil
}

func (r *BookRepo) GetEnabledBooks() ([]Book, error) {
	rows, err := r.db.Query(`
		SELECT ` + bookColumns + `
		FROM books
		WHERE enabled = TRUE
		ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled books: %w", err)
	}
	defer rows.Close()

	var result []Book
	for rows.Next() {
		book, err := r.scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		result = append(result, *book)
	}
	return result, rows.Err()
}

func (r *BookRepo) GetBookCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

// UpsertBook registers a book definition in the database, detecting
// source URL changes for already registered books.
func (r *BookRepo) UpsertBook(config *books.Config) (string, bool, error) {
	existing, err := r.GetBook(config.Slug)
	if err != nil {
		return "", false, fmt.Errorf("failed to check existing book: %w", err)
	}

	var dbID string
	var urlChanged bool
	if existing != nil {
		urlChanged = existing.SourceURL != config.Source.URL
		err = r.db.QueryRow(`
			UPDATE books
			SET name = $2, author = $3, source_kind = $4, source_url = $5,
			    chapter_selector = $6, body_selector = $7, enabled = $8,
			    poll_interval_seconds = $9, updated_at = NOW()
			WHERE slug = $1
			RETURNING id
		`, config.Slug, config.Name, config.Author, config.Source.Kind,
			config.Source.URL, config.Source.ChapterSelector, config.BodySelector,
			config.Settings.Enabled, config.Settings.PollInterval).Scan(&dbID)
	} else {
		err = r.db.QueryRow(`
			INSERT INTO books (slug, name, author, source_kind, source_url,
			                   chapter_selector, body_selector, enabled,
			                   poll_interval_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, config.Slug, config.Name, config.Author, config.Source.Kind,
			config.Source.URL, config.Source.ChapterSelector, config.BodySelector,
			config.Settings.Enabled, config.Settings.PollInterval).Scan(&dbID)
	}

	if err != nil {
		return "", false, fmt.Errorf("failed to upsert book: %w", err)
	}

	return dbID, urlChanged, nil
}

// ClaimForPoll takes the poll claim via a conditional write so that only
// one process instance ingests a given book at a time. A claim older than
// staleAfter is treated as abandoned and taken over.
func (r *BookRepo) ClaimForPoll(bookID string, staleAfter time.Duration) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE books
		SET poll_claimed_at = NOW()
		WHERE id = $1
		  AND (poll_claimed_at IS NULL OR poll_claimed_at < NOW() - ($2 * INTERVAL '1 second'))
	`, bookID, staleAfter.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to claim book for poll: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}

func (r *BookRepo) ReleasePoll(bookID string) error {
	_, err := r.db.Exec(`
		UPDATE books
		SET poll_claimed_at = NULL
		WHERE id = $1
	`, bookID)
	if err != nil {
		return fmt.Errorf("failed to release poll claim: %w", err)
	}
	return nil
}

func (r *BookRepo) UpdatePollTimes(bookID string, nextPoll time.Time) error {
	_, err := r.db.Exec(`
		UPDATE books
		SET last_polled_at = NOW(), next_poll_at = $2, updated_at = NOW()
		WHERE id = $1
	`, bookID, nextPoll)
	if err != nil {
		return fmt.Errorf("failed to update poll times: %w", err)
	}
	return nil
}
