package closing

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/httpx"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// Handler wires the year-end endpoints.
type Handler struct {
	logger       *slog.Logger
	pipeline     *Pipeline
	defaultRules []Rule
	validate     *validator.Validate
}

func NewHandler(logger *slog.Logger, pipeline *Pipeline) *Handler {
	return &Handler{logger: logger, pipeline: pipeline, validate: validator.New()}
}

// WithDefaultRules sets the apportionment rules used when a request
// carries none, typically loaded from the configured YAML file.
func (h *Handler) WithDefaultRules(rules []Rule) *Handler {
	h.defaultRules = rules
	return h
}

// MountRoutes registers the closing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/year-end/snapshot", h.handleSnapshot)
	r.Post("/year-end/depreciation", h.handleDepreciation)
	r.Post("/year-end/apportionment", h.handleApportionment)
	r.Post("/year-end/lock", h.handleLock)
	r.Get("/year-end/lock", h.handleLockStatus)
}

type stepRequest struct {
	Year int    `json:"year" validate:"required"`
	Date string `json:"date"`
}

// stepDate parses the closing date, defaulting to Dec 31 of the year.
func (req stepRequest) stepDate() (time.Time, error) {
	if req.Date == "" {
		return time.Date(req.Year, 12, 31, 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return time.Time{}, shared.Invalid("date", "must be YYYY-MM-DD")
	}
	return date, nil
}

func (h *Handler) decodeStep(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return shared.Invalid("body", "must be valid JSON")
	}
	if err := h.validate.Struct(target); err != nil {
		return shared.Invalid("body", err.Error())
	}
	return nil
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := h.decodeStep(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := req.stepDate()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.pipeline.RunSnapshot(r.Context(), req.Year, date)
	if err != nil {
		h.logger.Warn("run snapshot", slog.Int("year", req.Year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleDepreciation(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := h.decodeStep(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.pipeline.RunDepreciation(r.Context(), req.Year)
	if err != nil {
		h.logger.Warn("run depreciation", slog.Int("year", req.Year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type apportionmentRequest struct {
	Year  int    `json:"year" validate:"required"`
	Date  string `json:"date"`
	Rules []Rule `json:"rules" validate:"dive"`
}

func (h *Handler) handleApportionment(w http.ResponseWriter, r *http.Request) {
	var req apportionmentRequest
	if err := h.decodeStep(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := stepRequest{Year: req.Year, Date: req.Date}.stepDate()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rules := req.Rules
	if len(rules) == 0 {
		rules = h.defaultRules
	}
	if len(rules) == 0 {
		httpx.RespondError(w, shared.Invalid("rules", "are required"))
		return
	}
	result, err := h.pipeline.RunApportionment(r.Context(), req.Year, date, rules)
	if err != nil {
		h.logger.Warn("run apportionment", slog.Int("year", req.Year), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := h.decodeStep(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.pipeline.LockYear(r.Context(), req.Year); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locked_year": req.Year})
}

func (h *Handler) handleLockStatus(w http.ResponseWriter, r *http.Request) {
	year, err := h.pipeline.LockedYear(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locked_year": year})
}
