package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/cfg"
	"github.com/JordanSekky/cereal-convert/app/database"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache *books.ConfigCache
	bookRepo    database.BookRepository
	subRepo     database.SubscriptionRepository
	ingestor    BookIngestor
	batcher     GroupBatcher
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(configCache *books.ConfigCache, bookRepo database.BookRepository,
	subRepo database.SubscriptionRepository, ingestor BookIngestor, batcher GroupBatcher) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		configCache: configCache,
		bookRepo:    bookRepo,
		subRepo:     subRepo,
		ingestor:    ingestor,
		batcher:     batcher,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	bookConfigs := s.configCache.GetConfigs()
	if len(bookConfigs) == 0 {
		slog.Debug("No book definitions found")
		return
	}

	slog.Debug("Syncing book definitions", "count", len(bookConfigs))

	for _, bookConfig := range bookConfigs {
		syncTask := NewSyncBookConfigTask(bookConfig, s.bookRepo)
		if err := s.EnqueueTask(syncTask); err != nil {
			slog.Warn("Failed to enqueue SyncBookConfigTask", "book", bookConfig.Slug, "error", err)
		}
	}
}

func (s *Scheduler) enqueueTasks() {
	s.enqueuePollTasks()
	s.enqueueDeliverTasks()
}

func (s *Scheduler) enqueuePollTasks() {
	bookConfigs := s.configCache.GetEnabledConfigs()
	if len(bookConfigs) == 0 {
		slog.Debug("No enabled book definitions found")
		return
	}

	for _, bookConfig := range bookConfigs {
		book, err := s.bookRepo.GetBook(bookConfig.Slug)
		if err != nil {
			slog.Warn("Failed to get book from database, skipping", "book", bookConfig.Slug, "error", err)
			continue
		}
		if book == nil {
			slog.Warn("Book not found in database, skipping", "book", bookConfig.Slug)
			continue
		}

		now := time.Now().UTC()
		if book.NextPollAt != nil && book.NextPollAt.After(now) {
			slog.Debug("Book not due for polling yet", "book", bookConfig.Slug, "next_poll_at", book.NextPollAt)
			continue
		}

		pollTask := NewPollBookTask(book, s.ingestor, s.bookRepo)
		if err := s.EnqueueTask(pollTask); err != nil {
			slog.Warn("Failed to enqueue PollBookTask", "book", bookConfig.Slug, "error", err)
		}
	}
}

func (s *Scheduler) enqueueDeliverTasks() {
	subs, err := s.subRepo.GetSubscriptionsWithPending()
	if err != nil {
		slog.Warn("Failed to get subscriptions with pending chapters", "error", err)
		return
	}

	for _, sub := range subs {
		deliverTask := NewDeliverGroupTask(sub, s.batcher, s.subRepo)
		if err := s.EnqueueTask(deliverTask); err != nil {
			slog.Warn("Failed to enqueue DeliverGroupTask", "user_id", sub.UserID, "book_id", sub.BookID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
