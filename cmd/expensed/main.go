package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"expensed/internal/cache"
	"expensed/internal/config"
	"expensed/internal/events"
	"expensed/internal/ledger"
	"expensed/internal/session"
	"expensed/internal/storage"
	"expensed/internal/tools"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite repository (runs migrations on startup)
	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Initialize AMQP event publisher (optional)
	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP event publishing disabled - no AMQP_URL provided")
	}

	// Report cache with background expiry cleanup
	reportCache := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	sessions := session.NewManager(repo, cfg.SessionTTL)
	ledgerSvc := ledger.NewService(repo, eventsClient, reportCache)

	srv := tools.NewServer(":"+cfg.Port, sessions, ledgerSvc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting expensed server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
