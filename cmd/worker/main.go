package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/phoenix/service/config"
	"github.com/brojonat/phoenix/service/ingest"
	"github.com/brojonat/phoenix/service/market"
	"github.com/brojonat/phoenix/service/metrics"
	natspkg "github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/solana"
	"github.com/brojonat/phoenix/service/temporal"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"network", cfg.Network,
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	m, err := market.Target(cfg.MarketsPath(), cfg.MarketQuery, cfg.MarketAddress)
	if err != nil {
		logger.Error("failed to select market", "error", err)
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("%s with address %s", m.Name(), m.Address))

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: metrics.NewHandler(metricsCollector),
	}
	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	rpcClient := solana.NewRPCClient(cfg.SolanaRPCURL)
	solanaClient := solana.NewClient(rpcClient, solana.EndpointLabel(cfg.SolanaRPCURL), metricsCollector, logger)
	defer solanaClient.Close()
	logger.Info("initialized solana RPC client", "endpoint", solana.EndpointLabel(cfg.SolanaRPCURL))

	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, metricsCollector, logger)
	if err != nil {
		logger.Error("failed to create NATS publisher", "error", err)
		os.Exit(1)
	}
	defer natsPublisher.Close()

	pipeline := ingest.NewPipeline(solanaClient, solanaClient, natsPublisher, ingest.Config{
		Workers:        cfg.IngestWorkers,
		RPCTimeout:     cfg.RPCTimeout,
		PublishTimeout: cfg.PublishTimeout,
	}, metricsCollector, logger)

	// Keep the market's schedule in line with the current configuration.
	temporalClient, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		logger.Error("failed to create temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	upsertCtx, upsertCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = temporalClient.UpsertIngestSchedule(upsertCtx, temporal.IngestMarketInput{
		Address: m.Address,
		Market:  m.Name(),
		Limit:   cfg.SignatureLimit,
	}, cfg.PollInterval)
	upsertCancel()
	if err != nil {
		logger.Error("failed to upsert ingest schedule", "error", err)
		os.Exit(1)
	}

	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Runner:            pipeline,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- worker.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		if err != nil {
			logger.Error("temporal worker error", "error", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
		worker.Stop()
		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
