package assets

import (
	"time"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// Method selects the depreciation schedule.
type Method string

const (
	MethodStraightLine Method = "STRAIGHT_LINE"
	MethodOneTime      Method = "ONE_TIME"
)

// Status tracks the asset lifecycle.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisposed Status = "DISPOSED"
)

// DisposalKind distinguishes scrapping from selling off.
type DisposalKind string

const (
	DisposalScrap DisposalKind = "SCRAP"
	DisposalSell  DisposalKind = "SELL"
)

// FixedAsset is a registered depreciable asset. CurrentBookValue is a
// cached projection; the engine recomputes it from scratch on every run.
type FixedAsset struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	PurchaseDate     time.Time  `json:"purchase_date"`
	ServiceDate      *time.Time `json:"service_date,omitempty"`
	PurchasePrice    int64      `json:"purchase_price"`
	LifespanYears    int        `json:"lifespan_years"`
	Method           Method     `json:"method"`
	BusinessRatio    int        `json:"business_ratio"`
	CurrentBookValue int64      `json:"current_book_value"`
	Status           Status     `json:"status"`
	Notes            string     `json:"notes"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ServiceStart is the depreciation start date, defaulting to purchase.
func (a FixedAsset) ServiceStart() time.Time {
	if a.ServiceDate != nil && !a.ServiceDate.IsZero() {
		return *a.ServiceDate
	}
	return a.PurchaseDate
}

// AssetInput carries a registration or edit.
type AssetInput struct {
	Name          string `validate:"required"`
	PurchaseDate  time.Time
	ServiceDate   *time.Time
	PurchasePrice int64
	LifespanYears int
	Method        Method
	BusinessRatio int
	Notes         string
}

// Validate checks the mandatory fields.
func (in AssetInput) Validate() error {
	if in.Name == "" {
		return shared.Invalid("name", "is required")
	}
	if in.PurchaseDate.IsZero() {
		return shared.Invalid("purchase_date", "is required")
	}
	if in.PurchasePrice <= 0 {
		return shared.Invalid("purchase_price", "must be positive")
	}
	if in.Method != MethodStraightLine && in.Method != MethodOneTime {
		return shared.Invalid("method", "must be STRAIGHT_LINE or ONE_TIME")
	}
	if in.BusinessRatio < 0 || in.BusinessRatio > 100 {
		return shared.Invalid("business_ratio", "must be between 0 and 100")
	}
	return nil
}
