package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tripledger/internal/backend"
	"tripledger/internal/cli"
	apphttp "tripledger/internal/http"
	"tripledger/internal/log"
	"tripledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	factory := backend.NewFactory(logger)

	store, err := factory.CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	publisher, err := factory.CreatePublisher(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize event publisher", "error", err, "events", cfg.EventsBackend)
		os.Exit(1)
	}

	svc := services.NewLedgerService(store.Store, publisher).WithLogger(logger)
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Currency: cfg.Currency,
		CacheTTL: cfg.CacheTTL,
		Logger:   logger,
	})
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, "error", err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close ledger service", log.FieldOperation, log.OpShutdown, "error", err)
		}
	})

	logger.Info("Starting tripledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.EventsBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
