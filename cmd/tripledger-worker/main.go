package main

import (
	"context"
	"errors"
	"os"
	"time"

	"tripledger/internal/backend"
	"tripledger/internal/cli"
	"tripledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting tripledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)
	factory := backend.NewFactory(logger)

	store, err := factory.CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if store.Cleanup != nil {
		defer store.Cleanup()
	}

	sheet, err := factory.CreateSheetWriter(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize settlement sheet", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(store.Store, sheet, cfg.SyncConcurrency).WithLogger(logger)

	// Catch up on anything recorded while the worker was down.
	logger.Info("Performing startup sync")
	if err := syncWorker.SyncAll(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
	}

	consumer, err := factory.CreateConsumer(ctx, backendCfg)
	if errors.Is(err, backend.ErrNoConsumer) {
		logger.Info("No events backend configured, exiting after startup sync")
		return
	}
	if err != nil {
		logger.Error("Failed to initialize event consumer", "error", err, "events", cfg.EventsBackend)
		os.Exit(1)
	}
	defer consumer.Close()

	if err := consumer.ConsumeBatchRecorded(ctx, syncWorker.HandleBatchRecorded); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
