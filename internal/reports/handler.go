package reports

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/httpx"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// Handler wires the report and export endpoints.
type Handler struct {
	logger   *slog.Logger
	compiler *Compiler
}

func NewHandler(logger *slog.Logger, compiler *Compiler) *Handler {
	return &Handler{logger: logger, compiler: compiler}
}

// MountRoutes registers the report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/pl", h.handlePL)
	r.Get("/reports/bs", h.handleBS)
	r.Get("/reports/monthly", h.handleMonthly)
	r.Get("/reports/summary", h.handleSummary)
	r.Get("/etax/export", h.handleETaxExport)
}

func yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, shared.Invalid("year", "is required")
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Invalid("year", "must be numeric")
	}
	return year, nil
}

func (h *Handler) handlePL(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pl, err := h.compiler.ProfitLoss(r.Context(), year)
	if err != nil {
		h.logger.Error("compile profit and loss", slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) handleBS(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.compiler.BalanceSheet(r.Context(), year)
	if err != nil {
		h.logger.Error("compile balance sheet", slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.compiler.MonthlySummary(r.Context(), year)
	if err != nil {
		h.logger.Error("compile monthly summary", slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	stats, err := h.compiler.Summary(r.Context(), year)
	if err != nil {
		h.logger.Error("compile summary stats", slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleETaxExport(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	typ, err := ParseExportType(r.URL.Query().Get("type"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.compiler.ETaxRows(r.Context(), year, typ)
	if err != nil {
		h.logger.Error("build e-tax export", slog.Int("year", year), slog.String("type", string(typ)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=Shift_JIS")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ETaxFilename(typ, year)+`"`)
	if err := WriteETaxCSV(w, rows); err != nil {
		h.logger.Error("write e-tax csv", slog.Any("error", err))
	}
}
