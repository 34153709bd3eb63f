package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/querychat/querychat/internal/api"
	"github.com/querychat/querychat/internal/auth"
	"github.com/querychat/querychat/internal/charts"
	"github.com/querychat/querychat/internal/chat"
	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/engine/sqldb"
	"github.com/querychat/querychat/internal/intent"
	"github.com/querychat/querychat/internal/nl2sql"
	"github.com/querychat/querychat/internal/observability"
	"github.com/querychat/querychat/internal/oracle"
	"github.com/querychat/querychat/internal/storage"
	"github.com/querychat/querychat/internal/storage/local"
	s3store "github.com/querychat/querychat/internal/storage/s3"
	"github.com/querychat/querychat/internal/telemetry"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("querychat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Observability.OTELEndpoint, cfg.Service.Name, version, cfg.Observability.OTELInsecure)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	dialect, err := sqldb.DialectFor(cfg.Engine.Driver)
	if err != nil {
		logger.Error("unsupported engine driver", slog.Any("error", err))
		os.Exit(1)
	}
	db, err := sqldb.Open(ctx, sqldb.DBConfig{
		Driver:          cfg.Engine.Driver,
		DSN:             cfg.Engine.DSN,
		MaxOpenConns:    cfg.Engine.MaxOpenConns,
		MaxIdleConns:    cfg.Engine.MaxIdleConns,
		ConnMaxIdleTime: cfg.Engine.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Engine.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open engine", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Engine.Driver == config.EngineDriverDuckDB {
		views, err := config.ParseParquetViews(cfg.Engine.ParquetViews)
		if err == nil {
			err = sqldb.AttachParquetViews(ctx, db, views)
		}
		if err != nil {
			logger.Error("failed to attach parquet views", slog.Any("error", err))
			_ = db.Close()
			os.Exit(1)
		}
	}
	eng := sqldb.New(db, dialect, logger)
	defer func() { _ = eng.Close() }()

	o, err := oracle.New(ctx, oracle.Config{
		Provider:    cfg.AI.Provider,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize oracle", slog.Any("error", err))
		os.Exit(1)
	}

	readiness := []api.ReadinessCheck{api.CheckPing("engine", eng)}
	opts := chat.Options{Logger: logger}
	if cfg.Charts.Enabled {
		store, check, err := openChartStore(ctx, cfg)
		if err != nil {
			logger.Error("failed to initialize chart store", slog.Any("error", err))
			os.Exit(1)
		}
		if check != nil {
			readiness = append(readiness, check)
		}
		opts.Advisor = charts.NewAdvisor(o, logger)
		opts.Store = store
	}

	service := chat.NewService(
		intent.NewRouter(o, logger),
		eng,
		nl2sql.New(o, eng, nl2sql.Options{Dialect: dialect.Name(), Logger: logger}),
		o,
		opts,
	)

	deps := api.Dependencies{
		Logger:            logger,
		Chat:              service,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: 2 * time.Second,
		Store:             opts.Store,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Authenticate = func(scope string) func(http.Handler) http.Handler {
			return auth.Middleware(logger, validator, scope)
		}
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("engine", dialect.Name()),
			slog.String("model", cfg.Chat.ModelID),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", slog.Any("error", err))
	}
	logger.Info("api server stopped")
}

func openChartStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, api.ReadinessCheck, error) {
	if cfg.Charts.Store != config.ChartStoreS3 {
		store, err := local.New(cfg.Charts.Dir)
		return store, nil, err
	}
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		PresignTTL:       cfg.ObjectStore.PresignTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, api.CheckPing("object_store", store), nil
}
