package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JordanSekky/cereal-convert/app/database"
)

type PollBookTask struct {
	Task
	Book     *database.Book
	ingestor BookIngestor
	bookRepo database.BookRepository
}

func NewPollBookTask(book *database.Book, ingestor BookIngestor, bookRepo database.BookRepository) *PollBookTask {
	return &PollBookTask{
		Task:     NewTask(TaskTypePollBook, book.Slug),
		Book:     book,
		ingestor: ingestor,
		bookRepo: bookRepo,
	}
}

func (t *PollBookTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	claimed, err := t.bookRepo.ClaimForPoll(t.Book.ID, ClaimStaleAfter)
	if err != nil {
		return fmt.Errorf("failed to claim book for polling: %w", err)
	}
	if !claimed {
		slog.Debug("Book claimed by another instance, skipping", "book", t.Book.Slug)
		return nil
	}
	defer func() {
		if err := t.bookRepo.ReleasePoll(t.Book.ID); err != nil {
			slog.Error("Failed to release poll claim", "book", t.Book.Slug, "error", err)
		}
	}()

	// The schedule advances even when the poll fails, so an unreachable
	// or malformed source is not hammered between scheduler ticks.
	nextPoll := time.Now().UTC().Add(time.Duration(t.Book.PollInterval) * time.Second)
	if err := t.bookRepo.UpdatePollTimes(t.Book.ID, nextPoll); err != nil {
		return fmt.Errorf("failed to update poll times: %w", err)
	}

	count, err := t.ingestor.Run(ctx, t.Book)
	if err != nil {
		return fmt.Errorf("failed to poll book: %w", err)
	}

	slog.Info("Task completed",
		"type", "PollBook",
		"book", t.Book.Slug,
		"duration", t.GetDuration(),
		"new", count)

	return nil
}
