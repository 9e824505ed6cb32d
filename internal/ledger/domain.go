package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// EntryType distinguishes income from expense rows.
type EntryType string

const (
	EntryIncome  EntryType = "income"
	EntryExpense EntryType = "expense"
)

// SettleStatus tracks whether a row has been paid out.
type SettleStatus string

const (
	StatusSettled   SettleStatus = "settled"
	StatusUnsettled SettleStatus = "unsettled"
)

// GeneratedTag identifies rows posted by the engine rather than the user.
// Year-end steps replace their own rows by (fiscal_year, tag), which keeps
// re-runs idempotent without description matching.
type GeneratedTag string

const (
	GeneratedNone          GeneratedTag = ""
	GeneratedSnapshot      GeneratedTag = "snapshot"
	GeneratedDepreciation  GeneratedTag = "depreciation"
	GeneratedApportionment GeneratedTag = "apportionment"
	GeneratedDisposal      GeneratedTag = "disposal"
)

// feePlatformARate is applied with arithmetic rounding, feePlatformBRate
// with truncation, matching the platforms' own settlement statements.
const (
	feePlatformARate = 0.036
	feePlatformBRate = 0.10
)

// receiptDelayTolerance is the scanner-preservation grace period between a
// transaction date and the receipt attachment time.
const receiptDelayTolerance = 70 * 24 * time.Hour

// Transaction is one ledger row. Amounts are integer yen.
type Transaction struct {
	ID            int64        `json:"id"`
	Date          time.Time    `json:"date"`
	Type          EntryType    `json:"type"`
	Category      string       `json:"category"`
	SubCategory   string       `json:"sub_category"`
	Description   string       `json:"description"`
	AmountEntered int64        `json:"amount_entered"`
	AmountGross   int64        `json:"amount_gross"`
	Fee           int64        `json:"fee"`
	ShippingFee   int64        `json:"shipping_fee"`
	AmountNet     int64        `json:"amount_net"`
	PaymentSource string       `json:"payment_source"`
	IsHusbandPaid bool         `json:"is_husband_paid"`
	PartnerName   string       `json:"partner_name"`
	TaxRate       int          `json:"tax_rate"`
	InvoiceNo     string       `json:"invoice_no"`
	DebitAccount  Account      `json:"debit_account"`
	CreditAccount Account      `json:"credit_account"`
	Status        SettleStatus `json:"status"`
	DepositDate   *time.Time   `json:"deposit_date,omitempty"`
	ReceiptPath   string       `json:"receipt_path"`
	IsDelayed     bool         `json:"is_delayed"`
	GeneratedBy   GeneratedTag `json:"generated_by,omitempty"`
	FiscalYear    int          `json:"fiscal_year,omitempty"`
	ParentID      int64        `json:"parent_id,omitempty"`
	SourceAssetID int64        `json:"source_asset_id,omitempty"`
	DeletedAt     *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Snapshot serialises the full row for audit records.
func (t Transaction) Snapshot() json.RawMessage {
	data, _ := json.Marshal(t)
	return data
}

// EntryInput is the candidate state for a create or update. Updates carry
// the full intended state; derived fields are recomputed on every write.
type EntryInput struct {
	Date          time.Time    `validate:"required"`
	Type          EntryType    `validate:"required,oneof=income expense"`
	Category      string
	SubCategory   string
	Description   string
	AmountGross   int64 `validate:"required,gt=0"`
	Fee           *int64
	ShippingFee   int64
	PaymentSource string
	IsHusbandPaid bool
	PartnerName   string
	TaxRate       int
	InvoiceNo     string
	Status        SettleStatus
	DepositDate   *time.Time
	ReceiptPath   string
	NewReceipt    bool
}

// Validate checks the mandatory fields.
func (in EntryInput) Validate() error {
	if in.Date.IsZero() {
		return shared.Invalid("date", "is required")
	}
	if in.AmountGross == 0 {
		return shared.Invalid("amount_gross", "is required")
	}
	if in.Type != EntryIncome && in.Type != EntryExpense {
		return shared.Invalid("type", "must be income or expense")
	}
	return nil
}

// computeFee applies the override when present, else the platform rate.
func computeFee(in EntryInput) int64 {
	if in.Fee != nil {
		return *in.Fee
	}
	switch in.PaymentSource {
	case SourcePlatformA:
		return int64(math.Round(float64(in.AmountGross) * feePlatformARate))
	case SourcePlatformB:
		return int64(math.Floor(float64(in.AmountGross) * feePlatformBRate))
	}
	return 0
}

// isPlatformSource reports payouts that arrive via a platform settlement.
func isPlatformSource(source string) bool {
	return source == SourcePlatformA || source == SourcePlatformB
}

// GeneratedInput describes a synthetic adjustment entry posted by the
// depreciation engine or a year-end step.
type GeneratedInput struct {
	Date          time.Time
	Type          EntryType
	Category      string
	SubCategory   string
	Description   string
	Amount        int64
	Debit         Account
	Credit        Account
	Tag           GeneratedTag
	FiscalYear    int
	SourceAssetID int64
}

func (g GeneratedInput) transaction(now time.Time) Transaction {
	return Transaction{
		Date:          g.Date,
		Type:          g.Type,
		Category:      g.Category,
		SubCategory:   g.SubCategory,
		Description:   g.Description,
		AmountEntered: g.Amount,
		AmountGross:   g.Amount,
		AmountNet:     g.Amount,
		PaymentSource: SourceAdjustment,
		TaxRate:       10,
		DebitAccount:  g.Debit,
		CreditAccount: g.Credit,
		Status:        StatusSettled,
		GeneratedBy:   g.Tag,
		FiscalYear:    g.FiscalYear,
		SourceAssetID: g.SourceAssetID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// QueryFilter narrows transaction listings. Zero values are ignored.
type QueryFilter struct {
	Year      int
	DateFrom  time.Time
	DateTo    time.Time
	Category  string
	AmountMin *int64
	AmountMax *int64
	Keyword   string
}

// AuditAction enumerates the audited mutations.
type AuditAction string

const (
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
)

// AuditEntry is one append-only change record.
type AuditEntry struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	Action        AuditAction     `json:"action"`
	OldData       json.RawMessage `json:"old_data,omitempty"`
	NewData       json.RawMessage `json:"new_data,omitempty"`
	ChangedBy     int64           `json:"changed_by"`
	ChangedAt     time.Time       `json:"changed_at"`
}

// feeChildText returns partner and description for a derived fee row.
func feeChildText(source, parentPartner, parentDescription string) (partner, description string) {
	switch source {
	case SourcePlatformA:
		partner = "決済代行会社"
		description = "カード決済手数料"
	case SourcePlatformB:
		partner = "オークション運営会社"
		description = "落札システム利用料"
	default:
		partner = parentPartner + " (Fee)"
		description = "決済手数料"
	}
	if parentDescription != "" {
		description = fmt.Sprintf("%s (%s)", description, parentDescription)
	}
	return partner, description
}

// shippingChildText returns the description for a derived shipping row.
func shippingChildText(parentDescription string) string {
	description := "送料 (天引き)"
	if parentDescription != "" {
		description = fmt.Sprintf("%s (%s)", description, parentDescription)
	}
	return description
}
