package inventory

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/httpx"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// Handler wires the inventory endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.handleList)
	r.Post("/inventory", h.handleCreate)
	r.Post("/inventory/from-purchase", h.handleCreateFromPurchase)
	r.Put("/inventory/{id}", h.handleUpdate)
	r.Delete("/inventory/{id}", h.handleDelete)
	r.Get("/inventory/snapshots", h.handleSnapshots)
	r.Post("/inventory/snapshots", h.handleTakeSnapshot)
}

type itemRequest struct {
	Name         string `json:"name" validate:"required"`
	SourceType   string `json:"source_type" validate:"required,oneof=PURCHASED BRED SUPPLY"`
	Quantity     int    `json:"quantity" validate:"min=0"`
	CostPrice    int64  `json:"cost_price" validate:"min=0"`
	PurchaseDate string `json:"purchase_date"`
	Status       string `json:"status" validate:"omitempty,oneof=ACTIVE SOLD DEAD USED"`
	Notes        string `json:"notes"`
}

func (req itemRequest) toInput() (ItemInput, error) {
	in := ItemInput{
		Name:       req.Name,
		SourceType: SourceType(req.SourceType),
		Quantity:   req.Quantity,
		CostPrice:  req.CostPrice,
		Status:     ItemStatus(req.Status),
		Notes:      req.Notes,
	}
	if req.PurchaseDate != "" {
		d, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			return ItemInput{}, shared.Invalid("purchase_date", "must be YYYY-MM-DD")
		}
		in.PurchaseDate = d
	}
	return in, nil
}

func (h *Handler) decodeItem(r *http.Request) (ItemInput, error) {
	var req itemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return ItemInput{}, shared.Invalid("body", "must be valid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return ItemInput{}, shared.Invalid("body", err.Error())
	}
	return req.toInput()
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, shared.Invalid("id", "must be numeric")
	}
	return id, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := ItemStatus(r.URL.Query().Get("status"))
	items, err := h.service.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list inventory", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	valuation, err := h.service.Valuation(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":           items,
		"total_valuation": valuation.Total(),
		"merchandise":     valuation.Merchandise,
		"supplies":        valuation.Supplies,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeItem(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create inventory item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

type purchaseItemRequest struct {
	Name         string `json:"name" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	GrossAmount  int64  `json:"gross_amount" validate:"required,gt=0"`
	PurchaseDate string `json:"purchase_date" validate:"required"`
	Notes        string `json:"notes"`
}

func (h *Handler) handleCreateFromPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("body", "must be valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Invalid("body", err.Error()))
		return
	}
	date, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("purchase_date", "must be YYYY-MM-DD"))
		return
	}
	item, err := h.service.CreateFromPurchase(r.Context(), PurchaseItemInput{
		Name:         req.Name,
		Quantity:     req.Quantity,
		GrossAmount:  req.GrossAmount,
		PurchaseDate: date,
		Notes:        req.Notes,
	})
	if err != nil {
		h.logger.Warn("create inventory from purchase", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.decodeItem(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("update inventory item", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (h *Handler) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.service.Snapshots(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snaps)
}

func (h *Handler) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Year int    `json:"year" validate:"required"`
		Date string `json:"date"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("body", "must be valid JSON"))
		return
	}
	if req.Year == 0 {
		httpx.RespondError(w, shared.Invalid("year", "is required"))
		return
	}
	date := time.Date(req.Year, 12, 31, 0, 0, 0, 0, time.UTC)
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("date", "must be YYYY-MM-DD"))
			return
		}
		date = d
	}
	snap, err := h.service.TakeSnapshot(r.Context(), req.Year, date)
	if err != nil {
		h.logger.Warn("take inventory snapshot", slog.Int("year", req.Year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}
