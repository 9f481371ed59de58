package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chartmesh/chartmesh/internal/config"
	"github.com/chartmesh/chartmesh/internal/demo"
	"github.com/chartmesh/chartmesh/internal/observability"
)

func main() {
	cfg, err := demo.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo driver config", slog.Any("error", err))
		os.Exit(1)
	}
	serviceCfg, err := config.LoadFromEnv("chartmesh-demo")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(serviceCfg, os.Stdout)
	driver, err := demo.NewDriver(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize demo driver", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"demo driver started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.String("client_id", cfg.ClientID),
		slog.Int("rows", cfg.Rows),
		slog.Float64("dirty_ratio", cfg.DirtyRatio),
		slog.Duration("interval", cfg.Interval),
		slog.Int64("seed", cfg.Seed),
	)

	err = driver.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("demo driver stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo driver stopped")
}
