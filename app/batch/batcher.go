package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JordanSekky/cereal-convert/app/convert"
	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/delivery"
	"github.com/JordanSekky/cereal-convert/app/storage"
)

// EbookConverter produces the delivery artifact for a chapter group.
// Satisfied by convert.Converter.
type EbookConverter interface {
	Run(ctx context.Context, meta convert.Metadata, chapters []convert.ChapterText) ([]byte, error)
}

var _ EbookConverter = (*convert.Converter)(nil)

// GroupDeliverer fans a converted group out to a user's channels.
// Satisfied by delivery.Sender.
type GroupDeliverer interface {
	DeliverGroup(ctx context.Context, dm *database.DeliveryMethod, group delivery.Group, artifact []byte) error
}

var _ GroupDeliverer = (*delivery.Sender)(nil)

// Batcher assembles and delivers chapter groups for subscriptions. A
// group is exactly GroupingQuantity consecutive queued chapters in
// discovery order; fewer queued chapters than that means no delivery.
type Batcher struct {
	queue     database.QueueRepository
	books     database.BookRepository
	methods   database.DeliveryMethodRepository
	store     storage.Store
	converter EbookConverter
	sender    GroupDeliverer
}

func NewBatcher(queue database.QueueRepository, books database.BookRepository,
	methods database.DeliveryMethodRepository, store storage.Store,
	converter EbookConverter, sender GroupDeliverer) *Batcher {
	return &Batcher{
		queue:     queue,
		books:     books,
		methods:   methods,
		store:     store,
		converter: converter,
		sender:    sender,
	}
}

// Tick delivers at most one group for the subscription. Returns whether
// a group was delivered. The queue is only consumed after the delivery
// succeeded, so any failure leaves the group intact for the next tick.
func (b *Batcher) Tick(ctx context.Context, sub database.Subscription) (bool, error) {
	pending, err := b.queue.GetPending(sub.UserID, sub.BookID)
	if err != nil {
		return false, fmt.Errorf("failed to load pending chapters: %w", err)
	}

	quantity := int(sub.GroupingQuantity)
	if quantity < 1 {
		quantity = 1
	}
	if len(pending) < quantity {
		return false, nil
	}
	group := pending[:quantity]

	dm, err := b.methods.GetDeliveryMethod(sub.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to load delivery method: %w", err)
	}
	if len(delivery.EligibleChannels(dm)) == 0 {
		return false, fmt.Errorf("user %s: %w", sub.UserID, delivery.ErrNotConfigured)
	}

	book, err := b.books.GetBookByID(sub.BookID)
	if err != nil {
		return false, fmt.Errorf("failed to load book: %w", err)
	}
	if book == nil {
		return false, fmt.Errorf("book %s not found for subscription of user %s", sub.BookID, sub.UserID)
	}

	chapters := make([]convert.ChapterText, 0, quantity)
	for _, pc := range group {
		body, err := b.store.Fetch(ctx, storage.Location{Bucket: pc.Body.Bucket, Key: pc.Body.Key})
		if err != nil {
			return false, fmt.Errorf("failed to fetch body for chapter %s: %w", pc.Chapter.ID, err)
		}
		chapters = append(chapters, convert.ChapterText{Name: pc.Chapter.Name, Body: string(body)})
	}

	first := group[0].Chapter
	last := group[quantity-1].Chapter

	title := fmt.Sprintf("%s: %s", book.Name, first.Name)
	if quantity > 1 {
		title = fmt.Sprintf("%s: %s - %s", book.Name, first.Name, last.Name)
	}

	artifact, err := b.converter.Run(ctx, convert.Metadata{
		BookName: book.Name,
		Author:   book.Author,
		Title:    title,
	}, chapters)
	if err != nil {
		return false, fmt.Errorf("failed to convert group: %w", err)
	}

	err = b.sender.DeliverGroup(ctx, dm, delivery.Group{
		BookName:     book.Name,
		Author:       book.Author,
		FirstChapter: first.Name,
		LastChapter:  last.Name,
		Count:        quantity,
	}, artifact)
	if err != nil {
		return false, err
	}

	unsentIDs := make([]string, 0, quantity)
	for _, pc := range group {
		unsentIDs = append(unsentIDs, pc.UnsentID)
	}
	if err := b.queue.ConsumeGroup(sub.UserID, sub.BookID, unsentIDs, last.ID); err != nil {
		// The group was delivered but stays queued. The next tick will
		// deliver it again rather than lose it.
		return false, fmt.Errorf("failed to consume delivered group: %w", err)
	}

	slog.Info("Delivered chapter group", "user_id", sub.UserID, "book", book.Slug,
		"first", first.Name, "last", last.Name, "count", quantity)

	return true, nil
}
