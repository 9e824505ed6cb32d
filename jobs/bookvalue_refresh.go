package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aoiro-ledger/aoiro-ledger/internal/assets"
)

// NewBookValueRefreshHandler recomputes the cached book values of the
// asset register. The cache only drifts when a year ticks over or an
// asset row is edited out of band, so this runs cheaply.
func NewBookValueRefreshHandler(svc *assets.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload YearPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		year := payload.Year
		if year == 0 {
			year = time.Now().Year()
		}
		refreshed, err := svc.RefreshBookValues(ctx, year)
		if err != nil {
			logger.Error("book value refresh", slog.Int("year", year), slog.Any("error", err))
			return err
		}
		logger.Info("book values refreshed", slog.Int("year", year), slog.Int("updated", refreshed))
		return nil
	}
}
