package settings

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/httpx"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// Handler wires the settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings/opening-balances/{year}", h.handleGet)
	r.Put("/settings/opening-balances/{year}", h.handleUpdate)
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year <= 0 {
		return 0, shared.Invalid("year", "must be a positive integer")
	}
	return year, nil
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balances, err := h.service.OpeningBalances(r.Context(), year)
	if err != nil {
		h.logger.Error("get opening balances", slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var patch OpeningBalancesPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, shared.Invalid("body", "must be valid JSON"))
		return
	}
	balances, err := h.service.UpdateOpeningBalances(r.Context(), year, patch)
	if err != nil {
		h.logger.Warn("update opening balances", slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}
