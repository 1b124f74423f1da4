package database

import (
	"time"

	"github.com/JordanSekky/cereal-convert/app/books"
)

type BookRepository interface {
	GetBook(slug string) (*Book, error)
	GetBookByID(bookID string) (*Book, error)
	GetEnabledBooks() ([]Book, error)
	GetBookCount() (int, error)

	// UpsertBook registers a book definition, reporting whether the
	// source URL changed for an already registered book.
	UpsertBook(config *books.Config) (string, bool, error)

	// ClaimForPoll takes the cross-process poll claim for a book. A stale
	// claim older than staleAfter is taken over. Returns false when
	// another holder has the claim.
	ClaimForPoll(bookID string, staleAfter time.Duration) (bool, error)
	ReleasePoll(bookID string) error
	UpdatePollTimes(bookID string, nextPoll time.Time) error
}

type ChapterRepository interface {
	// GetSourceURLs returns the dedup key set for a book.
	GetSourceURLs(bookID string) (map[string]struct{}, error)

	// CreateWithBody commits a chapter row, its body location and one
	// queue entry per subscriber in one transaction. The body bytes
	// must already be durable in the object store.
	CreateWithBody(chapter NewChapter, bucket, key string, subscriberIDs []string) (*Chapter, error)

	GetChapter(chapterID string) (*Chapter, error)
	GetChapterCount(bookID string) (int, error)
}

type SubscriptionRepository interface {
	GetSubscriptions(bookID string) ([]Subscription, error)

	// GetSubscriptionsWithPending returns subscriptions that have at
	// least one queued chapter.
	GetSubscriptionsWithPending() ([]Subscription, error)

	// Claim takes the cross-process delivery claim for a subscription.
	Claim(userID, bookID string, staleAfter time.Duration) (bool, error)
	Release(userID, bookID string) error
}

type QueueRepository interface {
	// GetPending returns a user's queued chapters for one book in
	// discovery order.
	GetPending(userID, bookID string) ([]PendingChapter, error)

	// ConsumeGroup deletes the given queue entries and advances the
	// subscription cursor in one transaction. The cursor never moves
	// backwards in discovery order.
	ConsumeGroup(userID, bookID string, unsentIDs []string, lastChapterID string) error

	GetQueueDepth() (int, error)
	GetOldestPendingAge() (*time.Duration, error)
}

type DeliveryMethodRepository interface {
	GetDeliveryMethod(userID string) (*DeliveryMethod, error)

	SetKindleEmail(userID, email, verificationCode string, codeTime time.Time) error
	MarkKindleEmailVerified(userID string) error
	SetKindleEmailEnabled(userID string, enabled bool) error

	SetPushoverKey(userID, key, verificationCode string, codeTime time.Time) error
	MarkPushoverVerified(userID string) error
	SetPushoverEnabled(userID string, enabled bool) error
}
