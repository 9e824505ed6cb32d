package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/aoiro-ledger/aoiro-ledger/internal/app"
	"github.com/aoiro-ledger/aoiro-ledger/internal/assets"
	"github.com/aoiro-ledger/aoiro-ledger/internal/closing"
	"github.com/aoiro-ledger/aoiro-ledger/internal/inventory"
	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/cache"
	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/db"
	"github.com/aoiro-ledger/aoiro-ledger/internal/reports"
	"github.com/aoiro-ledger/aoiro-ledger/internal/settings"
	"github.com/aoiro-ledger/aoiro-ledger/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	lockState := closing.NewFiscalLockState(pool)
	ledgerService := ledger.NewService(ledger.NewRepository(pool), lockState)
	assetsRepo := assets.NewRepository(pool)
	assetsService := assets.NewService(assetsRepo, ledgerService)
	inventoryService := inventory.NewService(inventory.NewRepository(pool))
	settingsService := settings.NewService(settings.NewRepository(pool))

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	ledgerService.WithInvalidator(reportCache)
	compiler := reports.NewCompiler(logger, reports.NewRepository(pool), assetsRepo, inventoryService, settingsService, reportCache).
		WithPlugThreshold(cfg.PlugWarnThreshold)

	bookValueTask, err := jobs.NewBookValueRefreshTask(0, time.Now())
	if err != nil {
		logger.Error("build book value task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportWarmupTask(0, time.Now())
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBookValueRefresh, Handler: jobs.NewBookValueRefreshHandler(assetsService, logger)},
			{Type: jobs.TaskReportWarmup, Handler: jobs.NewReportWarmupHandler(compiler, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: bookValueTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
