package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aml-triage/handler"
	"aml-triage/internal/app"
	"aml-triage/internal/config"
	"aml-triage/internal/logging"
)

func main() {
	ctx := context.Background()

	loadedEnv := config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)
	if loadedEnv {
		logger.Info("loaded environment from .env")
	}

	params, err := app.NewParamStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	svc, err := app.NewService(cfg, params, logger)
	if err != nil {
		logger.Error("failed to create assessment service", "err", err)
		os.Exit(1)
	}
	h, err := handler.NewHandler(svc, handler.WithLogger(logger), handler.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes))
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	srv := handler.NewServer(logger, cfg.HTTP, handler.NewRouter(logger, h))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
