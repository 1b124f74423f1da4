package database

import (
	"fmt"
	"time"
)

var _ SubscriptionRepository = (*SubscriptionRepo)(nil)

// SubscriptionRepo handles database operations for subscriptions
type SubscriptionRepo struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

func (r *SubscriptionRepo) GetSubscriptions(bookID string) ([]Subscription, error) {
	rows, err := r.db.Query(`
		SELECT user_id, book_id, grouping_quantity, last_chapter_id, claimed_at, created_at
		FROM subscriptions
		WHERE book_id = $1
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// GetSubscriptionsWithPending returns subscriptions whose user has at
// least one queued chapter belonging to the subscribed book.
func (r *SubscriptionRepo) GetSubscriptionsWithPending() ([]Subscription, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT s.user_id, s.book_id, s.grouping_quantity, s.last_chapter_id,
		       s.claimed_at, s.created_at
		FROM subscriptions s
		JOIN unsent_chapters u ON u.user_id = s.user_id
		JOIN chapters c ON c.id = u.chapter_id AND c.book_id = s.book_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions with pending chapters: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// Claim takes the delivery claim for a subscription via a conditional
// write, guaranteeing at most one concurrent batch tick per subscription
// across process instances. Stale claims are taken over.
func (r *SubscriptionRepo) Claim(userID, bookID string, staleAfter time.Duration) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE subscriptions
		SET claimed_at = NOW()
		WHERE user_id = $1 AND book_id = $2
		  AND (claimed_at IS NULL OR claimed_at < NOW() - ($3 * INTERVAL '1 second'))
	`, userID, bookID, staleAfter.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to claim subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}

func (r *SubscriptionRepo) Release(userID, bookID string) error {
	_, err := r.db.Exec(`
		UPDATE subscriptions
		SET claimed_at = NULL
		WHERE user_id = $1 AND book_id = $2
	`, userID, bookID)
	if err != nil {
		return fmt.Errorf("failed to release subscription claim: %w", err)
	}
	return nil
}

type subscriptionRows interface {
	Next() bool
	Scan(...any) error
	Err() error
}

func scanSubscriptions(rows subscriptionRows) ([]Subscription, error) {
	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		err := rows.Scan(&sub.UserID, &sub.BookID, &sub.GroupingQuantity,
			&sub.LastChapterID, &sub.ClaimedAt, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
