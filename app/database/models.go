package database

import (
	"time"
)

type Book struct {
	ID              string // Database UUID
	Slug            string // Definition identifier derived from filename
	Name            string
	Author          string
	SourceKind      string // feed | page
	SourceURL       string
	ChapterSelector string // CSS selector for chapter links (page sources)
	BodySelector    string // CSS selector for chapter body text
	Enabled         bool
	PollInterval    int // seconds
	PollClaimedAt   *time.Time
	LastPolledAt    *time.Time
	NextPollAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Chapter struct {
	ID           string
	Seq          int64 // Discovery order, monotone per database
	BookID       string
	Name         string
	Author       string
	SourceURL    string
	Kind         string // feed | page, how the chapter was obtained
	PublishedAt  *time.Time
	DiscoveredAt time.Time
}

type NewChapter struct {
	BookID      string
	Name        string
	Author      string
	SourceURL   string
	Kind        string
	PublishedAt *time.Time
}

type ChapterBody struct {
	ChapterID string
	Bucket    string
	Key       string
}

type Subscription struct {
	UserID           string
	BookID           string
	GroupingQuantity int64
	LastChapterID    *string
	ClaimedAt        *time.Time
	CreatedAt        time.Time
}

type DeliveryMethod struct {
	UserID                          string
	KindleEmail                     *string
	KindleEmailVerified             bool
	KindleEmailEnabled              bool
	KindleEmailVerificationCode     *string
	KindleEmailVerificationCodeTime *time.Time
	PushoverKey                     *string
	PushoverKeyVerified             bool
	PushoverEnabled                 bool
	PushoverVerificationCode        *string
	PushoverVerificationCodeTime    *time.Time
	CreatedAt                       time.Time
	UpdatedAt                       time.Time
}

// GetKindleEmail returns the kindle address only when the channel is an
// eligible delivery target.
func (dm *DeliveryMethod) GetKindleEmail() *string {
	if dm.KindleEmailVerified && dm.KindleEmailEnabled {
		return dm.KindleEmail
	}
	return nil
}

// GetPushoverKey returns the pushover key only when the channel is an
// eligible delivery target.
func (dm *DeliveryMethod) GetPushoverKey() *string {
	if dm.PushoverKeyVerified && dm.PushoverEnabled {
		return dm.PushoverKey
	}
	return nil
}

type UnsentChapter struct {
	ID        string
	UserID    string
	ChapterID string
	CreatedAt time.Time
}

// PendingChapter is one delivery-queue entry joined with its chapter and
// stored body location, in discovery order.
type PendingChapter struct {
	UnsentID string
	Chapter  Chapter
	Body     ChapterBody
}
