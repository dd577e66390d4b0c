package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/phoenix/service/config"
	"github.com/brojonat/phoenix/service/db"
	"github.com/brojonat/phoenix/service/metrics"
	natspkg "github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/server"
	"github.com/brojonat/phoenix/service/sink"
)

const durableName = "transactions-sink"

func main() {
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	metricsCollector := metrics.NewMetrics(nil)

	// Query API, /health and /metrics
	httpServer := server.New(cfg.ServerAddr, store, metricsCollector, logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown http server", "error", err)
		}
	}()

	consumer, err := natspkg.NewConsumer(cfg.NATSURL, durableName, logger)
	if err != nil {
		logger.Error("failed to create NATS consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	s := sink.New(store, metricsCollector, logger)

	logger.Info("sink started", "nats_url", cfg.NATSURL, "durable", durableName)
	if err := consumer.Run(ctx, s.Handle); err != nil {
		logger.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
