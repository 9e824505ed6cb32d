package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// RepositoryPort is the read surface plus the transaction boundary.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetAsset(ctx context.Context, id int64) (FixedAsset, error)
	ListAssets(ctx context.Context, includeDisposed bool) ([]FixedAsset, error)
}

// TxRepository is the write surface inside a transaction.
type TxRepository interface {
	GetAsset(ctx context.Context, id int64) (FixedAsset, error)
	InsertAsset(ctx context.Context, a FixedAsset) (int64, error)
	UpdateAsset(ctx context.Context, a FixedAsset) error
	UpdateBookValue(ctx context.Context, id, bookValue int64, at time.Time) error
	MarkDisposed(ctx context.Context, id int64, notes string, at time.Time) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// JournalPort is what the engine needs from the transaction ledger:
// idempotent per-asset depreciation rows, append-only disposal legs,
// and cascade removal when an asset registration is revoked.
type JournalPort interface {
	ReplaceAssetDepreciation(ctx context.Context, year int, assetID int64, entry *ledger.GeneratedInput) (*ledger.Transaction, error)
	PostGenerated(ctx context.Context, entries []ledger.GeneratedInput) ([]ledger.Transaction, error)
	RemoveAssetEntries(ctx context.Context, assetID int64) error
}

// Service owns the asset register and the depreciation engine.
type Service struct {
	repo    RepositoryPort
	journal JournalPort
	now     func() time.Time
}

func NewService(repo RepositoryPort, journal JournalPort) *Service {
	return &Service{repo: repo, journal: journal, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Get(ctx context.Context, id int64) (FixedAsset, error) {
	return s.repo.GetAsset(ctx, id)
}

func (s *Service) List(ctx context.Context, includeDisposed bool) ([]FixedAsset, error) {
	return s.repo.ListAssets(ctx, includeDisposed)
}

// Create registers an asset. The cached book value starts at the full
// purchase price until the first depreciation run.
func (s *Service) Create(ctx context.Context, in AssetInput) (FixedAsset, error) {
	if err := in.Validate(); err != nil {
		return FixedAsset{}, err
	}
	now := s.now()
	asset := FixedAsset{
		Name:             in.Name,
		PurchaseDate:     in.PurchaseDate,
		ServiceDate:      in.ServiceDate,
		PurchasePrice:    in.PurchasePrice,
		LifespanYears:    in.LifespanYears,
		Method:           in.Method,
		BusinessRatio:    in.BusinessRatio,
		CurrentBookValue: in.PurchasePrice,
		Status:           StatusActive,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertAsset(ctx, asset)
		if err != nil {
			return err
		}
		asset.ID = id
		return nil
	})
	if err != nil {
		return FixedAsset{}, err
	}
	return asset, nil
}

// Update edits the master record. Schedule-relevant changes take effect
// on the next depreciation run, since every run recomputes from scratch.
func (s *Service) Update(ctx context.Context, id int64, in AssetInput) (FixedAsset, error) {
	if err := in.Validate(); err != nil {
		return FixedAsset{}, err
	}
	var updated FixedAsset
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.PurchaseDate = in.PurchaseDate
		current.ServiceDate = in.ServiceDate
		current.PurchasePrice = in.PurchasePrice
		current.LifespanYears = in.LifespanYears
		current.Method = in.Method
		current.BusinessRatio = in.BusinessRatio
		current.Notes = in.Notes
		current.UpdatedAt = s.now()
		if err := tx.UpdateAsset(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return FixedAsset{}, err
	}
	return updated, nil
}

// Delete revokes a mistaken registration: the asset is soft-deleted and
// every journal row it generated is removed with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	now := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetAsset(ctx, id); err != nil {
			return err
		}
		return tx.SoftDelete(ctx, id, now)
	})
	if err != nil {
		return err
	}
	return s.journal.RemoveAssetEntries(ctx, id)
}

// Compute reconstructs the depreciation schedule for one asset, posts
// (or re-posts) the year's journal row, and refreshes the cached book
// value. Running it twice for the same year leaves a single row.
func (s *Service) Compute(ctx context.Context, id int64, year int) (Computation, error) {
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return Computation{}, err
	}
	if asset.Status == StatusDisposed {
		return Computation{}, shared.Invalid("status", "asset is already disposed")
	}
	if asset.Method == MethodStraightLine && asset.LifespanYears <= 0 {
		return Computation{}, shared.Invalid("lifespan_years", "must be positive for straight-line assets")
	}

	comp := Depreciate(asset, year)
	var entry *ledger.GeneratedInput
	if comp.AllowableExpense > 0 {
		entry = &ledger.GeneratedInput{
			Date:          time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			Type:          ledger.EntryExpense,
			Category:      ledger.CategoryDepreciation,
			Description:   fmt.Sprintf("%d年度 減価償却 (%s)", year, asset.Name),
			Amount:        comp.AllowableExpense,
			Debit:         ledger.AccountDepreciation,
			Credit:        ledger.AccountFixedAssets,
			Tag:           ledger.GeneratedDepreciation,
			FiscalYear:    year,
			SourceAssetID: asset.ID,
		}
	}
	if _, err := s.journal.ReplaceAssetDepreciation(ctx, year, asset.ID, entry); err != nil {
		return Computation{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateBookValue(ctx, asset.ID, comp.BookValue, s.now())
	})
	if err != nil {
		return Computation{}, err
	}
	return comp, nil
}

// ComputeAll runs the engine for every active asset, returning the
// per-asset results keyed by asset id.
func (s *Service) ComputeAll(ctx context.Context, year int) (map[int64]Computation, error) {
	active, err := s.repo.ListAssets(ctx, false)
	if err != nil {
		return nil, err
	}
	results := make(map[int64]Computation, len(active))
	for _, a := range active {
		if a.Method == MethodStraightLine && a.LifespanYears <= 0 {
			continue
		}
		comp, err := s.Compute(ctx, a.ID, year)
		if err != nil {
			return nil, err
		}
		results[a.ID] = comp
	}
	return results, nil
}

// RefreshBookValues recomputes the cached book value of every active
// asset as of the given year without touching the journal. Used by the
// nightly background refresh.
func (s *Service) RefreshBookValues(ctx context.Context, year int) (int, error) {
	active, err := s.repo.ListAssets(ctx, false)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := s.now()
		for _, a := range active {
			if a.Method == MethodStraightLine && a.LifespanYears <= 0 {
				continue
			}
			comp := Depreciate(a, year)
			if comp.BookValue == a.CurrentBookValue {
				continue
			}
			if err := tx.UpdateBookValue(ctx, a.ID, comp.BookValue, now); err != nil {
				return err
			}
			refreshed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return refreshed, nil
}

// Dispose writes off an asset mid-year: a final prorated depreciation
// term, then the remaining book value as a removal loss. Both legs are
// scaled by the business ratio. The asset is marked disposed with a
// zero book value and an annotated note.
func (s *Service) Dispose(ctx context.Context, id int64, date time.Time, kind DisposalKind, note string) (Disposal, error) {
	if date.IsZero() {
		return Disposal{}, shared.Invalid("date", "is required")
	}
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return Disposal{}, err
	}
	if asset.Status == StatusDisposed {
		return Disposal{}, shared.Invalid("status", "asset is already disposed")
	}

	d := ComputeDisposal(asset, date)
	var entries []ledger.GeneratedInput
	if d.TermAllowable > 0 {
		entries = append(entries, ledger.GeneratedInput{
			Date:          date,
			Type:          ledger.EntryExpense,
			Category:      ledger.CategoryDepreciation,
			Description:   fmt.Sprintf("%d年度 途中除却償却 (%dヶ月分) - %s", d.Year, d.MonthsUsed, asset.Name),
			Amount:        d.TermAllowable,
			Debit:         ledger.AccountDepreciation,
			Credit:        ledger.AccountFixedAssets,
			Tag:           ledger.GeneratedDisposal,
			FiscalYear:    d.Year,
			SourceAssetID: asset.ID,
		})
	}
	if d.LossAllowable > 0 {
		entries = append(entries, ledger.GeneratedInput{
			Date:          date,
			Type:          ledger.EntryExpense,
			Category:      ledger.CategoryDisposalLoss,
			Description:   fmt.Sprintf("除却損 (%s) - %s", kind, asset.Name),
			Amount:        d.LossAllowable,
			Debit:         ledger.AccountDisposalLoss,
			Credit:        ledger.AccountFixedAssets,
			Tag:           ledger.GeneratedDisposal,
			FiscalYear:    d.Year,
			SourceAssetID: asset.ID,
		})
	}
	if _, err := s.journal.PostGenerated(ctx, entries); err != nil {
		return Disposal{}, err
	}

	notes := asset.Notes
	stamp := fmt.Sprintf("%s 除却 (%s)", date.Format("2006-01-02"), kind)
	if note != "" {
		stamp += ": " + note
	}
	if notes != "" {
		notes += "\n"
	}
	notes += stamp

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.MarkDisposed(ctx, asset.ID, notes, s.now())
	})
	if err != nil {
		return Disposal{}, err
	}
	return d, nil
}
