package main

import (
	"context"
	"fmt"
	"os"

	"aml-triage/internal/app"
	"aml-triage/internal/cli"
	"aml-triage/internal/config"
	"aml-triage/internal/logging"
)

func main() {
	cmd := cli.NewRootCommand(func(ctx context.Context) (cli.Assessor, error) {
		config.LoadDotEnv()
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		logger := logging.NewWithWriter(os.Stderr, cfg.Logging)
		params, err := app.NewParamStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return app.NewService(cfg, params, logger)
	})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorMessage(err))
		os.Exit(1)
	}
}
