package ledger

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

// Handler wires the transaction endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/transactions", h.handleQuery)
	r.Post("/transactions", h.handleCreate)
	r.Put("/transactions/{id}", h.handleUpdate)
	r.Delete("/transactions/{id}", h.handleDelete)
	r.Get("/transactions/{id}/audit", h.handleAuditLog)
}

type entryRequest struct {
	Date          string `json:"date" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=income expense"`
	Category      string `json:"category"`
	SubCategory   string `json:"sub_category"`
	Description   string `json:"description"`
	AmountGross   int64  `json:"amount_gross" validate:"required"`
	Fee           *int64 `json:"fee"`
	ShippingFee   int64  `json:"shipping_fee"`
	PaymentSource string `json:"payment_source"`
	IsHusbandPaid bool   `json:"is_husband_paid"`
	PartnerName   string `json:"partner_name"`
	TaxRate       int    `json:"tax_rate"`
	InvoiceNo     string `json:"invoice_no"`
	Status        string `json:"status"`
	DepositDate   string `json:"deposit_date"`
	ReceiptPath   string `json:"receipt_path"`
	NewReceipt    bool   `json:"new_receipt"`
}

func (req entryRequest) toInput() (EntryInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return EntryInput{}, shared.Invalid("date", "must be YYYY-MM-DD")
	}
	in := EntryInput{
		Date:          date,
		Type:          EntryType(req.Type),
		Category:      req.Category,
		SubCategory:   req.SubCategory,
		Description:   req.Description,
		AmountGross:   req.AmountGross,
		Fee:           req.Fee,
		ShippingFee:   req.ShippingFee,
		PaymentSource: req.PaymentSource,
		IsHusbandPaid: req.IsHusbandPaid,
		PartnerName:   req.PartnerName,
		TaxRate:       req.TaxRate,
		InvoiceNo:     req.InvoiceNo,
		Status:        SettleStatus(req.Status),
		ReceiptPath:   req.ReceiptPath,
		NewReceipt:    req.NewReceipt,
	}
	if req.DepositDate != "" {
		deposit, err := time.Parse("2006-01-02", req.DepositDate)
		if err != nil {
			return EntryInput{}, shared.Invalid("deposit_date", "must be YYYY-MM-DD")
		}
		in.DepositDate = &deposit
	}
	return in, nil
}

func (h *Handler) decodeEntry(r *http.Request) (EntryInput, error) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return EntryInput{}, shared.Invalid("body", "must be valid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return EntryInput{}, shared.Invalid("body", err.Error())
	}
	return req.toInput()
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeEntry(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Warn("create transaction", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("id", "must be numeric"))
		return
	}
	in, err := h.decodeEntry(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.logger.Warn("update transaction", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("id", "must be numeric"))
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := QueryFilter{
		Category: q.Get("category"),
		Keyword:  q.Get("partner"),
	}
	if year := q.Get("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("year", "must be numeric"))
			return
		}
		filter.Year = y
	}
	if from := q.Get("date_from"); from != "" {
		d, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("date_from", "must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = d
	}
	if to := q.Get("date_to"); to != "" {
		d, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("date_to", "must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = d
	}
	if raw := q.Get("amount_min"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("amount_min", "must be numeric"))
			return
		}
		filter.AmountMin = &v
	}
	if raw := q.Get("amount_max"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.Invalid("amount_max", "must be numeric"))
			return
		}
		filter.AmountMax = &v
	}

	entries, err := h.service.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("query transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.Invalid("id", "must be numeric"))
		return
	}
	entries, err := h.service.AuditLog(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
