package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JordanSekky/cereal-convert/app/api"
	"github.com/JordanSekky/cereal-convert/app/batch"
	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/cfg"
	"github.com/JordanSekky/cereal-convert/app/convert"
	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/delivery"
	"github.com/JordanSekky/cereal-convert/app/ingest"
	"github.com/JordanSekky/cereal-convert/app/ratelimit"
	"github.com/JordanSekky/cereal-convert/app/sources"
	"github.com/JordanSekky/cereal-convert/app/storage"
	"github.com/JordanSekky/cereal-convert/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Cereal", "version", appCfg.Version)

	// Database connection
	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	// Book definitions
	configCache := books.NewConfigCache(appCfg.BooksDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load book definitions", "dir", appCfg.BooksDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Book definitions loaded", "count", configCache.GetConfigCount())

	// Repositories
	bookRepo := database.NewBookRepository(db)
	chapterRepo := database.NewChapterRepository(db)
	subRepo := database.NewSubscriptionRepository(db)
	queueRepo := database.NewUnsentChapterRepository(db)
	methodRepo := database.NewDeliveryMethodRepository(db)

	// Object store
	store, err := storage.NewClient()
	if err != nil {
		slog.Error("Failed to connect to object store", "error", err)
		os.Exit(1)
	}

	// Ingestion pipeline
	limiter := ratelimit.NewLimiter(appCfg.DomainRate, appCfg.DomainBurst)
	fetcher := sources.NewFetcher(&http.Client{}, limiter)
	ingestor := ingest.NewIngestor(fetcher, chapterRepo, subRepo, store)

	// Delivery pipeline
	converter := convert.NewConverter()
	sender := delivery.NewSender(delivery.NewMailgunSender(), delivery.NewPushoverSender())
	batcher := batch.NewBatcher(queueRepo, bookRepo, methodRepo, store, converter, sender)
	verifier := delivery.NewVerifier(methodRepo, delivery.NewMailgunSender(),
		delivery.NewPushoverSender(), converter)

	// Background scheduler
	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount,
		"interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(configCache, bookRepo, subRepo, ingestor, batcher)
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server
	apiHandler := api.NewHandler(configCache, bookRepo, chapterRepo, queueRepo, methodRepo, verifier)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
