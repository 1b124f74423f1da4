package tasks

import (
	"context"
	"time"

	"github.com/JordanSekky/cereal-convert/app/batch"
	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/ingest"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSubject() string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

// TaskSchedulerInterface defines the interface for background task
// processing. Used by the main application to manage the worker pool.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// BookIngestor runs one poll cycle for a book. Satisfied by
// ingest.Ingestor.
type BookIngestor interface {
	Run(ctx context.Context, book *database.Book) (int, error)
}

var _ BookIngestor = (*ingest.Ingestor)(nil)

// GroupBatcher delivers at most one chapter group for a subscription.
// Satisfied by batch.Batcher.
type GroupBatcher interface {
	Tick(ctx context.Context, sub database.Subscription) (bool, error)
}

var _ GroupBatcher = (*batch.Batcher)(nil)
