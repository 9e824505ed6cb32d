package assets

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

// Handler wires the asset register endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the asset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/assets", h.handleList)
	r.Post("/assets", h.handleCreate)
	r.Get("/assets/{id}", h.handleGet)
	r.Put("/assets/{id}", h.handleUpdate)
	r.Delete("/assets/{id}", h.handleDelete)
	r.Post("/assets/{id}/depreciate", h.handleDepreciate)
	r.Post("/assets/{id}/dispose", h.handleDispose)
}

type assetRequest struct {
	Name          string `json:"name" validate:"required"`
	PurchaseDate  string `json:"purchase_date" validate:"required"`
	ServiceDate   string `json:"service_date"`
	PurchasePrice int64  `json:"purchase_price" validate:"required,gt=0"`
	LifespanYears int    `json:"lifespan_years"`
	Method        string `json:"method" validate:"required,oneof=STRAIGHT_LINE ONE_TIME"`
	BusinessRatio int    `json:"business_ratio" validate:"min=0,max=100"`
	Notes         string `json:"notes"`
}

func (req assetRequest) toInput() (AssetInput, error) {
	purchased, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		return AssetInput{}, shared.Invalid("purchase_date", "must be YYYY-MM-DD")
	}
	in := AssetInput{
		Name:          req.Name,
		PurchaseDate:  purchased,
		PurchasePrice: req.PurchasePrice,
		LifespanYears: req.LifespanYears,
		Method:        Method(req.Method),
		BusinessRatio: req.BusinessRatio,
		Notes:         req.Notes,
	}
	if req.ServiceDate != "" {
		service, err := time.Parse("2006-01-02", req.ServiceDate)
		if err != nil {
			return AssetInput{}, shared.Invalid("service_date", "must be YYYY-MM-DD")
		}
		in.ServiceDate = &service
	}
	return in, nil
}

func (h *Handler) decodeAsset(r *http.Request) (AssetInput, error) {
	var req assetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return AssetInput{}, shared.Invalid("body", "must be valid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return AssetInput{}, shared.Invalid("body", err.Error())
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
	includeDisposed := r.URL.Query().Get("include_disposed") == "true"
	assets, err := h.service.List(r.Context(), includeDisposed)
	if err != nil {
		h.logger.Error("list assets", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assets)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeAsset(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create asset", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	in, err := h.decodeAsset(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asset, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("update asset", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
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

func (h *Handler) handleDepreciate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.RespondError(w, shared.Invalid("year", "must be numeric"))
		return
	}
	comp, err := h.service.Compute(r.Context(), id, year)
	if err != nil {
		h.logger.Warn("depreciate asset", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, comp)
}

type disposeRequest struct {
	Date string `json:"date" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=SCRAP SELL"`
	Note string `json:"note"`
}

func (h *Handler) handleDispose(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req disposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Invalid("body", "must be valid JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, shared.Invalid("body", err.Error()))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("date", "must be YYYY-MM-DD"))
		return
	}
	result, err := h.service.Dispose(r.Context(), id, date, DisposalKind(req.Kind), req.Note)
	if err != nil {
		h.logger.Warn("dispose asset", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
