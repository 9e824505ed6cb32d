package inventory

import (
	"encoding/json"
	"time"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// SourceType classifies how an item entered stock. Purchased and bred
// animals count as merchandise; supplies are unused consumables.
type SourceType string

const (
	SourcePurchased SourceType = "PURCHASED"
	SourceBred      SourceType = "BRED"
	SourceSupply    SourceType = "SUPPLY"
)

// ItemStatus tracks what happened to stock.
type ItemStatus string

const (
	ItemActive ItemStatus = "ACTIVE"
	ItemSold   ItemStatus = "SOLD"
	ItemDead   ItemStatus = "DEAD"
	ItemUsed   ItemStatus = "USED"
)

// Item is one stock line. CostPrice is per unit, integer yen.
type Item struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	SourceType   SourceType `json:"source_type"`
	Quantity     int        `json:"quantity"`
	CostPrice    int64      `json:"cost_price"`
	PurchaseDate time.Time  `json:"purchase_date"`
	Status       ItemStatus `json:"status"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Value is the line valuation.
func (i Item) Value() int64 {
	return int64(i.Quantity) * i.CostPrice
}

// Valuation splits the active stock value the way the closing entries
// need it: merchandise (purchased + bred) against unused supplies.
type Valuation struct {
	Merchandise int64 `json:"merchandise"`
	Supplies    int64 `json:"supplies"`
}

func (v Valuation) Total() int64 {
	return v.Merchandise + v.Supplies
}

// Snapshot freezes one year's closing stock. Re-running a snapshot for
// the same year overwrites it.
type Snapshot struct {
	ID             int64           `json:"id"`
	Year           int             `json:"year"`
	SnapshotDate   time.Time       `json:"snapshot_date"`
	TotalValuation int64           `json:"total_valuation"`
	Data           json.RawMessage `json:"data"`
}

type snapshotData struct {
	Merchandise int64  `json:"merchandise"`
	Supplies    int64  `json:"supplies"`
	Items       []Item `json:"items"`
}

// ItemInput carries a create or edit.
type ItemInput struct {
	Name         string
	SourceType   SourceType
	Quantity     int
	CostPrice    int64
	PurchaseDate time.Time
	Status       ItemStatus
	Notes        string
}

// Validate checks the mandatory fields.
func (in ItemInput) Validate() error {
	if in.Name == "" {
		return shared.Invalid("name", "is required")
	}
	switch in.SourceType {
	case SourcePurchased, SourceBred, SourceSupply:
	default:
		return shared.Invalid("source_type", "must be PURCHASED, BRED or SUPPLY")
	}
	if in.Quantity < 0 {
		return shared.Invalid("quantity", "must not be negative")
	}
	if in.CostPrice < 0 {
		return shared.Invalid("cost_price", "must not be negative")
	}
	if in.Status != "" {
		switch in.Status {
		case ItemActive, ItemSold, ItemDead, ItemUsed:
		default:
			return shared.Invalid("status", "must be ACTIVE, SOLD, DEAD or USED")
		}
	}
	return nil
}

// PurchaseItemInput creates stock lines from a purchase ledger entry.
type PurchaseItemInput struct {
	Name         string
	Quantity     int
	GrossAmount  int64
	PurchaseDate time.Time
	Notes        string
}
