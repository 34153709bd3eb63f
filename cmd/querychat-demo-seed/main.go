package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/querychat/querychat/internal/config"
	"github.com/querychat/querychat/internal/demo"
	"github.com/querychat/querychat/internal/engine/sqldb"
	"github.com/querychat/querychat/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("querychat-demo-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	demoCfg, err := demo.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data := demo.NewGenerator(demoCfg.Seed).Generate(demoCfg.Students, demoCfg.CoursesPerStudent)

	if demoCfg.ParquetDir != "" {
		views, err := demo.WriteParquet(demoCfg.ParquetDir, data)
		if err != nil {
			logger.Error("failed to export parquet", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("demo parquet exported", slog.String("parquet_views", views))
	}
	if demoCfg.SkipDatabase {
		return
	}

	dialect, err := sqldb.DialectFor(cfg.Engine.Driver)
	if err != nil {
		logger.Error("unsupported engine driver", slog.Any("error", err))
		os.Exit(1)
	}
	db, err := sqldb.Open(ctx, sqldb.DBConfig{Driver: cfg.Engine.Driver, DSN: cfg.Engine.DSN})
	if err != nil {
		logger.Error("failed to open engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	counts, err := demo.Seed(ctx, db, dialect.Name(), data)
	if err != nil {
		logger.Error("demo seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo data seeded",
		slog.String("engine", dialect.Name()),
		slog.Int("students", counts.Students),
		slog.Int("courses", counts.Courses),
		slog.Int("grades", counts.Grades),
	)
}
