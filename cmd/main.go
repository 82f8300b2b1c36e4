package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"aml-triage/handler"
	"aml-triage/internal/app"
	"aml-triage/internal/config"
	"aml-triage/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	// ---- Clients ----
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

	// ---- Handler ----
	h, err := handler.NewHandler(svc, handler.WithLogger(logger), handler.WithMaxUploadBytes(cfg.HTTP.MaxUploadBytes))
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
