package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aoiro-ledger/aoiro-ledger/internal/reports"
)

// NewReportWarmupHandler compiles the year's statements so the first
// morning request hits a warm cache.
func NewReportWarmupHandler(compiler *reports.Compiler, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload YearPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		year := payload.Year
		if year == 0 {
			year = time.Now().Year()
		}
		if _, err := compiler.ProfitLoss(ctx, year); err != nil {
			logger.Error("warm profit and loss", slog.Int("year", year), slog.Any("error", err))
			return err
		}
		if _, err := compiler.BalanceSheet(ctx, year); err != nil {
			logger.Error("warm balance sheet", slog.Int("year", year), slog.Any("error", err))
			return err
		}
		if _, err := compiler.MonthlySummary(ctx, year); err != nil {
			logger.Error("warm monthly summary", slog.Int("year", year), slog.Any("error", err))
			return err
		}
		if _, err := compiler.Summary(ctx, year); err != nil {
			logger.Error("warm summary stats", slog.Int("year", year), slog.Any("error", err))
			return err
		}
		logger.Info("report cache warmed", slog.Int("year", year))
		return nil
	}
}
