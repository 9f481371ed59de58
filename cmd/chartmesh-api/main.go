package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chartmesh/chartmesh/internal/aggregate"
	"github.com/chartmesh/chartmesh/internal/aggregate/duckdb"
	"github.com/chartmesh/chartmesh/internal/api"
	"github.com/chartmesh/chartmesh/internal/auth"
	"github.com/chartmesh/chartmesh/internal/config"
	"github.com/chartmesh/chartmesh/internal/dataset"
	"github.com/chartmesh/chartmesh/internal/history"
	"github.com/chartmesh/chartmesh/internal/observability"
	s3store "github.com/chartmesh/chartmesh/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("chartmesh-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	var engine aggregate.Engine = aggregate.NewLocal()
	if cfg.Engine.Backend == config.BackendDuckDB {
		engine = duckdb.NewEngine(cfg.Engine.TempDir)
	}

	deps := api.Dependencies{
		Logger:           logger,
		Engine:           engine,
		History:          history.New(history.Config{Size: cfg.History.Size, MaxClients: cfg.History.MaxClients}),
		DependencyTimout: time.Second,
	}
	readiness := []api.ReadinessCheck{api.CheckObjectStoreConfig(cfg)}

	if cfg.ObjectStore.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Objects = dataset.NewObjectSource(objectStore, cfg.Upload.MaxBytes)
	}

	var sourceDB *sql.DB
	if cfg.Source.Postgres.DSN != "" {
		sourceDB, err = dataset.OpenPostgres(context.Background(), dataset.PostgresConfig{
			DSN:             cfg.Source.Postgres.DSN,
			MaxOpenConns:    cfg.Source.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Source.Postgres.MaxIdleConns,
			ConnMaxIdleTime: cfg.Source.Postgres.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Source.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open postgres source", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = sourceDB.Close() }()
		deps.Tables = dataset.NewPostgresSource(sourceDB, cfg.Source.Postgres.MaxRows)
		readiness = append(readiness, api.PingCheck("postgres source", sourceDB.PingContext))
	}
	deps.Readiness = api.CombineReadinessChecks(readiness...)

	if cfg.HTTP.RateLimitRPS > 0 {
		deps.RateLimiter = api.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, nil)
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("engine", cfg.Engine.Backend),
			slog.Bool("object_store", cfg.ObjectStore.Enabled),
			slog.Bool("postgres_source", sourceDB != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
