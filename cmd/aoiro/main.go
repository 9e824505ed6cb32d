package main

import (
	"context"
	"log/slog"
	"net/http"
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
	"github.com/aoiro-ledger/aoiro-ledger/report"
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, lockState)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	assetsRepo := assets.NewRepository(pool)
	assetsService := assets.NewService(assetsRepo, ledgerService)
	assetsHandler := assets.NewHandler(logger, assetsService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	ledgerService.WithInvalidator(reportCache)
	reportStats := reports.NewRepository(pool)
	compiler := reports.NewCompiler(logger, reportStats, assetsRepo, inventoryService, settingsService, reportCache).
		WithPlugThreshold(cfg.PlugWarnThreshold)
	reportsHandler := reports.NewHandler(logger, compiler)

	pipeline := closing.NewPipeline(logger, ledgerService, inventoryService, assetsService, lockState, reportCache)
	closingHandler := closing.NewHandler(logger, pipeline)
	if cfg.ApportionmentRules != "" {
		rules, err := closing.LoadRules(cfg.ApportionmentRules)
		if err != nil {
			logger.Error("load apportionment rules", slog.String("path", cfg.ApportionmentRules), slog.Any("error", err))
			os.Exit(1)
		}
		closingHandler.WithDefaultRules(rules)
	}

	pdfClient := report.NewClient(cfg.GotenbergURL)
	pdfHandler := report.NewHandler(pdfClient, compiler, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LedgerHandler:    ledgerHandler,
		AssetsHandler:    assetsHandler,
		InventoryHandler: inventoryHandler,
		SettingsHandler:  settingsHandler,
		ReportsHandler:   reportsHandler,
		ClosingHandler:   closingHandler,
		PDFHandler:       pdfHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
