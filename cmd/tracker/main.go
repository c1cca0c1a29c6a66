package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/oshiwatch/oshiwatch/internal/bluesky"
	"github.com/oshiwatch/oshiwatch/internal/config"
	"github.com/oshiwatch/oshiwatch/internal/domain"
	"github.com/oshiwatch/oshiwatch/internal/firehose"
	"github.com/oshiwatch/oshiwatch/internal/httpserver"
	"github.com/oshiwatch/oshiwatch/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer sqlite.Close(db)
	logger.Info("connected to database", "path", cfg.SQLitePath)

	authors := sqlite.NewAuthorRepository(db)
	posts := sqlite.NewPostRepository(db)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Profile lookups need an authenticated session; a failed login means
	// no author can ever resolve, so it is fatal.
	client := bluesky.NewClient("")
	if err := client.Login(ctx, cfg.BskyUsername, cfg.BskyPassword); err != nil {
		return fmt.Errorf("bluesky login: %w", err)
	}
	logger.Info("logged in to bluesky", "did", client.DID())

	cache, err := domain.NewAuthorCache(cfg.CacheCapacity)
	if err != nil {
		return fmt.Errorf("create author cache: %w", err)
	}
	queue := domain.NewPostQueue()
	resolver := domain.NewResolver(cache, authors, client, logger)
	tracker := domain.NewTracker(cache, queue, resolver, posts, logger)

	// Start the firehose subscriber in the background
	subscriber := firehose.NewSubscriber(cfg.SubscriptionEndpoint, cfg.SubscriptionReconnectDelay, tracker, logger)
	go func() {
		if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("firehose subscriber exited with error", "error", err)
		}
	}()

	// Start the queue drain worker and the retention pruner
	go tracker.RunDrainWorker(ctx, cfg.DrainInterval, cfg.DrainBatchSize)
	go tracker.RunPruner(ctx, cfg.PruneInterval, cfg.RetentionCount)

	// Start the HTTP server
	server := httpserver.NewServer(cfg, tracker, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("tracker started",
		"addr", cfg.ListenAddr(),
		"endpoint", cfg.SubscriptionEndpoint,
		"retention", cfg.RetentionCount,
	)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
