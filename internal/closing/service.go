package closing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aoiro-ledger/aoiro-ledger/internal/assets"
	"github.com/aoiro-ledger/aoiro-ledger/internal/inventory"
	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// LedgerPort is the slice of the ledger service the pipeline posts
// through.
type LedgerPort interface {
	SumExpense(ctx context.Context, year int, category, subCategory string, excludeTag ledger.GeneratedTag) (int64, error)
	ReplaceGenerated(ctx context.Context, year int, tag ledger.GeneratedTag, entries []ledger.GeneratedInput) ([]ledger.Transaction, error)
}

// StockPort snapshots the inventory at year end.
type StockPort interface {
	TakeSnapshot(ctx context.Context, year int, date time.Time) (inventory.Snapshot, error)
	SnapshotValuation(ctx context.Context, year int) (inventory.Valuation, bool, error)
}

// AssetPort runs the depreciation engine over the register.
type AssetPort interface {
	ComputeAll(ctx context.Context, year int) (map[int64]assets.Computation, error)
}

// Invalidator drops cached reports after a closing step rewrites the
// ledger.
type Invalidator interface {
	Invalidate(ctx context.Context, year int)
}

// Pipeline runs the year-end closing steps. Every step replaces its
// own generated rows, so re-running a step before the lock is safe.
type Pipeline struct {
	logger *slog.Logger
	ledger LedgerPort
	stock  StockPort
	assets AssetPort
	lock   LockStore
	cache  Invalidator
}

func NewPipeline(logger *slog.Logger, ledgerPort LedgerPort, stock StockPort, assetPort AssetPort, lock LockStore, cache Invalidator) *Pipeline {
	return &Pipeline{
		logger: logger,
		ledger: ledgerPort,
		stock:  stock,
		assets: assetPort,
		lock:   lock,
		cache:  cache,
	}
}

// SnapshotResult reports the stock taken and the entries posted.
type SnapshotResult struct {
	RunID          string               `json:"run_id"`
	TotalValuation int64                `json:"total_valuation"`
	Merchandise    int64                `json:"merchandise"`
	Supplies       int64                `json:"supplies"`
	Entries        []ledger.Transaction `json:"entries"`
}

// DepreciationResult reports the closing depreciation run.
type DepreciationResult struct {
	RunID        string                       `json:"run_id"`
	Total        int64                        `json:"total"`
	Computations map[int64]assets.Computation `json:"computations"`
}

// ApportionmentEntry describes one posted reclassification.
type ApportionmentEntry struct {
	Category      string `json:"category"`
	SubCategory   string `json:"sub_category"`
	PrivateAmount int64  `json:"private_amount"`
	ID            int64  `json:"id"`
}

// ApportionmentResult reports the private-use reclassifications.
type ApportionmentResult struct {
	RunID   string               `json:"run_id"`
	Entries []ApportionmentEntry `json:"entries"`
}

// ensureUnlocked refuses closing steps for a year the lock already
// covers; the ledger rows of that year are frozen.
func (p *Pipeline) ensureUnlocked(ctx context.Context, year int) error {
	if year <= 0 {
		return shared.Invalid("year", "must be positive")
	}
	locked, err := p.lock.LockedYear(ctx)
	if err != nil {
		return err
	}
	if year <= locked {
		return &shared.LockedPeriodError{Year: locked}
	}
	return nil
}

func (p *Pipeline) invalidate(ctx context.Context, year int) {
	if p.cache != nil {
		p.cache.Invalidate(ctx, year)
	}
}

// RunSnapshot values the active stock, upserts the year's snapshot and
// swaps the closing-stock entries.
func (p *Pipeline) RunSnapshot(ctx context.Context, year int, date time.Time) (SnapshotResult, error) {
	if err := p.ensureUnlocked(ctx, year); err != nil {
		return SnapshotResult{}, err
	}
	snap, err := p.stock.TakeSnapshot(ctx, year, date)
	if err != nil {
		return SnapshotResult{}, err
	}
	valuation, _, err := p.stock.SnapshotValuation(ctx, year)
	if err != nil {
		return SnapshotResult{}, err
	}

	var entries []ledger.GeneratedInput
	if valuation.Merchandise > 0 {
		entries = append(entries, ledger.GeneratedInput{
			Date:        date,
			Type:        ledger.EntryExpense,
			Category:    string(ledger.AccountClosingInventory),
			Description: fmt.Sprintf("%d年度 期末棚卸 (商品)", year),
			Amount:      valuation.Merchandise,
			Debit:       ledger.AccountMerchandise,
			Credit:      ledger.AccountClosingInventory,
			Tag:         ledger.GeneratedSnapshot,
			FiscalYear:  year,
		})
	}
	if valuation.Supplies > 0 {
		entries = append(entries, ledger.GeneratedInput{
			Date:        date,
			Type:        ledger.EntryExpense,
			Category:    string(ledger.AccountSuppliesExpense),
			Description: fmt.Sprintf("%d年度 期末棚卸 (貯蔵品・未使用分)", year),
			Amount:      valuation.Supplies,
			Debit:       ledger.AccountSupplies,
			Credit:      ledger.AccountSuppliesExpense,
			Tag:         ledger.GeneratedSnapshot,
			FiscalYear:  year,
		})
	}
	posted, err := p.ledger.ReplaceGenerated(ctx, year, ledger.GeneratedSnapshot, entries)
	if err != nil {
		return SnapshotResult{}, err
	}
	p.invalidate(ctx, year)
	runID := uuid.NewString()
	p.logger.Info("closing snapshot posted",
		slog.String("run_id", runID),
		slog.Int("year", year),
		slog.Int64("total_valuation", snap.TotalValuation),
		slog.Int("entries", len(posted)))
	return SnapshotResult{
		RunID:          runID,
		TotalValuation: snap.TotalValuation,
		Merchandise:    valuation.Merchandise,
		Supplies:       valuation.Supplies,
		Entries:        posted,
	}, nil
}

// RunDepreciation recomputes and reposts the year's depreciation for
// every active asset.
func (p *Pipeline) RunDepreciation(ctx context.Context, year int) (DepreciationResult, error) {
	if err := p.ensureUnlocked(ctx, year); err != nil {
		return DepreciationResult{}, err
	}
	computations, err := p.assets.ComputeAll(ctx, year)
	if err != nil {
		return DepreciationResult{}, err
	}
	var total int64
	for _, comp := range computations {
		total += comp.AllowableExpense
	}
	p.invalidate(ctx, year)
	runID := uuid.NewString()
	p.logger.Info("closing depreciation posted",
		slog.String("run_id", runID),
		slog.Int("year", year),
		slog.Int64("total", total),
		slog.Int("assets", len(computations)))
	return DepreciationResult{RunID: runID, Total: total, Computations: computations}, nil
}

// RunApportionment moves the private-use share of each ruled expense
// into owner's drawings. Rules with 0% or 100% business use are
// skipped, as are rules whose expense total is zero.
func (p *Pipeline) RunApportionment(ctx context.Context, year int, date time.Time, rules []Rule) (ApportionmentResult, error) {
	if err := p.ensureUnlocked(ctx, year); err != nil {
		return ApportionmentResult{}, err
	}
	var inputs []ledger.GeneratedInput
	var planned []ApportionmentEntry
	for _, rule := range rules {
		if rule.Category == "" {
			return ApportionmentResult{}, shared.Invalid("category", "is required")
		}
		if !rule.Applicable() {
			continue
		}
		total, err := p.ledger.SumExpense(ctx, year, rule.Category, rule.SubCategory, ledger.GeneratedApportionment)
		if err != nil {
			return ApportionmentResult{}, err
		}
		if total <= 0 {
			continue
		}
		private := total * int64(100-rule.Ratio) / 100
		if private <= 0 {
			continue
		}
		desc := fmt.Sprintf("%d年度 家事按分", year)
		if rule.SubCategory != "" {
			desc += fmt.Sprintf(" (%s)", rule.SubCategory)
		}
		desc += fmt.Sprintf(" (事業割合 %d%%)", rule.Ratio)
		inputs = append(inputs, ledger.GeneratedInput{
			Date:        date,
			Type:        ledger.EntryExpense,
			Category:    rule.Category,
			SubCategory: rule.SubCategory,
			Description: desc,
			Amount:      private,
			Debit:       ledger.AccountOwnerDrawings,
			Credit:      ledger.Account(rule.Category),
			Tag:         ledger.GeneratedApportionment,
			FiscalYear:  year,
		})
		planned = append(planned, ApportionmentEntry{
			Category:      rule.Category,
			SubCategory:   rule.SubCategory,
			PrivateAmount: private,
		})
	}
	posted, err := p.ledger.ReplaceGenerated(ctx, year, ledger.GeneratedApportionment, inputs)
	if err != nil {
		return ApportionmentResult{}, err
	}
	for i := range planned {
		if i < len(posted) {
			planned[i].ID = posted[i].ID
		}
	}
	p.invalidate(ctx, year)
	runID := uuid.NewString()
	p.logger.Info("closing apportionment posted",
		slog.String("run_id", runID),
		slog.Int("year", year), slog.Int("entries", len(planned)))
	return ApportionmentResult{RunID: runID, Entries: planned}, nil
}

// LockYear freezes the books through the given year. Locking is a
// one-way gate for mutations; re-locking the same or a later year is
// allowed.
func (p *Pipeline) LockYear(ctx context.Context, year int) error {
	if year <= 0 {
		return shared.Invalid("year", "must be positive")
	}
	if err := p.lock.SetLockedYear(ctx, year); err != nil {
		return err
	}
	p.logger.Info("fiscal year locked", slog.Int("locked_year", year))
	return nil
}

// LockedYear reports the current lock, zero when open.
func (p *Pipeline) LockedYear(ctx context.Context) (int, error) {
	return p.lock.LockedYear(ctx)
}
