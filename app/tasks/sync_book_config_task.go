package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/database"
)

type SyncBookConfigTask struct {
	Task
	BookConfig *books.Config
	bookRepo   database.BookRepository
}

func NewSyncBookConfigTask(bookConfig *books.Config, bookRepo database.BookRepository) *SyncBookConfigTask {
	return &SyncBookConfigTask{
		Task:       NewTask(TaskTypeSyncBookConfig, bookConfig.Slug),
		BookConfig: bookConfig,
		bookRepo:   bookRepo,
	}
}

func (t *SyncBookConfigTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, urlChanged, err := t.bookRepo.UpsertBook(t.BookConfig)
	if err != nil {
		slog.Error("Task failed", "type", "SyncBookConfig", "book", t.BookConfig.Slug, "error", err)
		return fmt.Errorf("failed to sync book config to database: %w", err)
	}

	if urlChanged {
		slog.Warn("Book source URL changed, existing chapters kept",
			"book", t.BookConfig.Slug, "url", t.BookConfig.Source.URL)
	}

	slog.Info("Task completed",
		"type", "SyncBookConfig",
		"book", t.BookConfig.Slug,
		"duration", t.GetDuration())

	return nil
}
