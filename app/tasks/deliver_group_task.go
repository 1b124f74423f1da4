package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/delivery"
)

type DeliverGroupTask struct {
	Task
	Sub     database.Subscription
	batcher GroupBatcher
	subRepo database.SubscriptionRepository
}

func NewDeliverGroupTask(sub database.Subscription, batcher GroupBatcher,
	subRepo database.SubscriptionRepository) *DeliverGroupTask {
	return &DeliverGroupTask{
		Task:    NewTask(TaskTypeDeliverGroup, fmt.Sprintf("%s/%s", sub.UserID, sub.BookID)),
		Sub:     sub,
		batcher: batcher,
		subRepo: subRepo,
	}
}

func (t *DeliverGroupTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	claimed, err := t.subRepo.Claim(t.Sub.UserID, t.Sub.BookID, ClaimStaleAfter)
	if err != nil {
		return fmt.Errorf("failed to claim subscription: %w", err)
	}
	if !claimed {
		slog.Debug("Subscription claimed by another instance, skipping",
			"user_id", t.Sub.UserID, "book_id", t.Sub.BookID)
		return nil
	}
	defer func() {
		if err := t.subRepo.Release(t.Sub.UserID, t.Sub.BookID); err != nil {
			slog.Error("Failed to release subscription claim",
				"user_id", t.Sub.UserID, "book_id", t.Sub.BookID, "error", err)
		}
	}()

	groups := 0
	for {
		delivered, err := t.batcher.Tick(ctx, t.Sub)
		if err != nil {
			// A user without an eligible channel keeps accumulating
			// queued chapters until one is verified. Not a task failure.
			if errors.Is(err, delivery.ErrNotConfigured) {
				slog.Debug("No eligible delivery channel, leaving queue intact",
					"user_id", t.Sub.UserID, "book_id", t.Sub.BookID)
				return nil
			}
			return fmt.Errorf("failed to deliver group: %w", err)
		}
		if !delivered {
			break
		}
		groups++
	}

	if groups > 0 {
		slog.Info("Task completed",
			"type", "DeliverGroup",
			"user_id", t.Sub.UserID,
			"book_id", t.Sub.BookID,
			"duration", t.GetDuration(),
			"groups", groups)
	}

	return nil
}
