package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// RepositoryPort is the read surface plus the transaction boundary.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, status ItemStatus) ([]Item, error)
	GetSnapshot(ctx context.Context, year int) (Snapshot, error)
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

// TxRepository is the write surface inside a transaction.
type TxRepository interface {
	GetItem(ctx context.Context, id int64) (Item, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, id int64) error
	UpsertSnapshot(ctx context.Context, snap Snapshot) error
}

// Service owns stock lines and year-end snapshots.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// List returns items filtered by status; an empty status returns all.
func (s *Service) List(ctx context.Context, status ItemStatus) ([]Item, error) {
	return s.repo.ListItems(ctx, status)
}

// normalize applies the stock rules: bred animals carry no cost, new
// items start active.
func normalize(in ItemInput) ItemInput {
	if in.SourceType == SourceBred {
		in.CostPrice = 0
	}
	if in.Status == "" {
		in.Status = ItemActive
	}
	return in
}

// Create registers a stock line.
func (s *Service) Create(ctx context.Context, in ItemInput) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	in = normalize(in)
	now := s.now()
	item := Item{
		Name:         in.Name,
		SourceType:   in.SourceType,
		Quantity:     in.Quantity,
		CostPrice:    in.CostPrice,
		PurchaseDate: in.PurchaseDate,
		Status:       in.Status,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertItem(ctx, item)
		if err != nil {
			return err
		}
		item.ID = id
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// CreateFromPurchase splits a purchase entry into stock lines, unit
// cost truncated from the gross amount.
func (s *Service) CreateFromPurchase(ctx context.Context, in PurchaseItemInput) (Item, error) {
	if in.Quantity <= 0 {
		return Item{}, shared.Invalid("quantity", "must be positive")
	}
	if in.GrossAmount <= 0 {
		return Item{}, shared.Invalid("gross_amount", "must be positive")
	}
	return s.Create(ctx, ItemInput{
		Name:         in.Name,
		SourceType:   SourcePurchased,
		Quantity:     in.Quantity,
		CostPrice:    in.GrossAmount / int64(in.Quantity),
		PurchaseDate: in.PurchaseDate,
		Notes:        in.Notes,
	})
}

// Update replaces a stock line.
func (s *Service) Update(ctx context.Context, id int64, in ItemInput) (Item, error) {
	if err := in.Validate(); err != nil {
		return Item{}, err
	}
	in = normalize(in)
	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.SourceType = in.SourceType
		current.Quantity = in.Quantity
		current.CostPrice = in.CostPrice
		current.PurchaseDate = in.PurchaseDate
		current.Status = in.Status
		current.Notes = in.Notes
		current.UpdatedAt = s.now()
		if err := tx.UpdateItem(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// Delete removes a stock line outright; items are working data, not
// bookkeeping records, so no soft delete.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetItem(ctx, id); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, id)
	})
}

// Valuation sums active stock, split into merchandise and supplies.
func (s *Service) Valuation(ctx context.Context) (Valuation, error) {
	items, err := s.repo.ListItems(ctx, ItemActive)
	if err != nil {
		return Valuation{}, err
	}
	var v Valuation
	for _, item := range items {
		if item.SourceType == SourceSupply {
			v.Supplies += item.Value()
		} else {
			v.Merchandise += item.Value()
		}
	}
	return v, nil
}

// TakeSnapshot freezes the active stock valuation for a year; rerunning
// overwrites the year's snapshot.
func (s *Service) TakeSnapshot(ctx context.Context, year int, date time.Time) (Snapshot, error) {
	items, err := s.repo.ListItems(ctx, ItemActive)
	if err != nil {
		return Snapshot{}, err
	}
	var v Valuation
	for _, item := range items {
		if item.SourceType == SourceSupply {
			v.Supplies += item.Value()
		} else {
			v.Merchandise += item.Value()
		}
	}
	data, err := json.Marshal(snapshotData{Merchandise: v.Merchandise, Supplies: v.Supplies, Items: items})
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Year:           year,
		SnapshotDate:   date,
		TotalValuation: v.Total(),
		Data:           data,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpsertSnapshot(ctx, snap)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// SnapshotValuation reads back a stored snapshot's merchandise/supplies
// split; the total is authoritative even if the split is missing.
func (s *Service) SnapshotValuation(ctx context.Context, year int) (Valuation, bool, error) {
	snap, err := s.repo.GetSnapshot(ctx, year)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Valuation{}, false, nil
		}
		return Valuation{}, false, err
	}
	var data snapshotData
	if len(snap.Data) > 0 {
		if err := json.Unmarshal(snap.Data, &data); err != nil {
			return Valuation{}, false, err
		}
	}
	v := Valuation{Merchandise: data.Merchandise, Supplies: data.Supplies}
	if v.Total() == 0 && snap.TotalValuation > 0 {
		v.Merchandise = snap.TotalValuation
	}
	return v, true, nil
}

// Snapshots lists stored snapshots, newest year first.
func (s *Service) Snapshots(ctx context.Context) ([]Snapshot, error) {
	return s.repo.ListSnapshots(ctx)
}
