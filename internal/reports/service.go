package reports

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aoiro-ledger/aoiro-ledger/internal/assets"
	"github.com/aoiro-ledger/aoiro-ledger/internal/inventory"
	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/settings"
)

// StatsPort is the aggregate query surface the compiler reads from.
type StatsPort interface {
	IncomeByCategory(ctx context.Context, year int) (map[string]int64, error)
	ExpenseByCategory(ctx context.Context, year int) (map[string]int64, error)
	Purchases(ctx context.Context, year int) (int64, error)
	CashFlow(ctx context.Context, limit time.Time) (int64, error)
	DepositsFlow(ctx context.Context, limit time.Time) (int64, error)
	Receivables(ctx context.Context, limit time.Time) (int64, error)
	Drawings(ctx context.Context, limit time.Time) (int64, error)
	Payables(ctx context.Context, limit time.Time) (int64, error)
	BorrowingsBase(ctx context.Context, limit time.Time) (int64, error)
	MonthlyByCategory(ctx context.Context, year int, typ ledger.EntryType, category string) ([12]int64, error)
	GrossTotal(ctx context.Context, year int, typ ledger.EntryType) (int64, error)
	PendingBySource(ctx context.Context, source string) (int64, error)
	IncomeFees(ctx context.Context, year int) (int64, error)
}

// AssetSource lists the asset register for live depreciation.
type AssetSource interface {
	ListAssets(ctx context.Context, includeDisposed bool) ([]assets.FixedAsset, error)
}

// StockSource resolves inventory valuations, stored or live.
type StockSource interface {
	SnapshotValuation(ctx context.Context, year int) (inventory.Valuation, bool, error)
	Valuation(ctx context.Context) (inventory.Valuation, error)
}

// OpeningSource resolves the opening balances for a year.
type OpeningSource interface {
	OpeningBalances(ctx context.Context, year int) (settings.OpeningBalances, error)
}

// defaultPlugThreshold is the absolute plug size above which the
// compiler warns that the books need review rather than a silent patch.
const defaultPlugThreshold = 100_000

// Compiler builds the fiscal-year statements. Compilation per report
// and year is deduplicated with singleflight and cached when a Cache
// is supplied.
type Compiler struct {
	logger        *slog.Logger
	stats         StatsPort
	assets        AssetSource
	stock         StockSource
	opening       OpeningSource
	cache         *Cache
	group         singleflight.Group
	plugThreshold int64
	now           func() time.Time
}

func NewCompiler(logger *slog.Logger, stats StatsPort, assetSource AssetSource, stock StockSource, opening OpeningSource, cache *Cache) *Compiler {
	return &Compiler{
		logger:        logger,
		stats:         stats,
		assets:        assetSource,
		stock:         stock,
		opening:       opening,
		cache:         cache,
		plugThreshold: defaultPlugThreshold,
		now:           time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (c *Compiler) WithNow(now func() time.Time) *Compiler {
	c.now = now
	return c
}

// WithPlugThreshold overrides the plug warning threshold.
func (c *Compiler) WithPlugThreshold(threshold int64) *Compiler {
	c.plugThreshold = threshold
	return c
}

func compile[T any](ctx context.Context, c *Compiler, kind string, year int, build func(context.Context) (T, error)) (T, error) {
	var zero T
	key := reportKey(kind, year)
	var cached T
	if c.cache.get(ctx, key, &cached) {
		return cached, nil
	}
	result, err, _ := c.group.Do(key, func() (any, error) {
		built, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.set(ctx, key, built)
		return built, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

// ProfitLoss compiles the income statement for a year.
func (c *Compiler) ProfitLoss(ctx context.Context, year int) (ProfitLoss, error) {
	return compile(ctx, c, "pl", year, func(ctx context.Context) (ProfitLoss, error) {
		return c.buildProfitLoss(ctx, year)
	})
}

func (c *Compiler) buildProfitLoss(ctx context.Context, year int) (ProfitLoss, error) {
	pl := ProfitLoss{Year: year}

	revenue, err := c.stats.IncomeByCategory(ctx, year)
	if err != nil {
		return pl, err
	}
	pl.Revenue.Details = revenue
	for _, total := range revenue {
		pl.Revenue.Total += total
	}

	opening, closing, err := c.inventoryBounds(ctx, year)
	if err != nil {
		return pl, err
	}
	purchases, err := c.stats.Purchases(ctx, year)
	if err != nil {
		return pl, err
	}
	pl.COGS = COGSSection{
		OpeningInventory: opening,
		Purchases:        purchases,
		ClosingInventory: closing,
		Total:            opening + purchases - closing,
	}
	pl.GrossProfit = pl.Revenue.Total - pl.COGS.Total

	expenses, err := c.stats.ExpenseByCategory(ctx, year)
	if err != nil {
		return pl, err
	}
	depreciation, err := c.liveDepreciation(ctx, year)
	if err != nil {
		return pl, err
	}
	expenses[ledger.CategoryDepreciation] += depreciation
	pl.Expenses.Details = expenses
	for _, total := range expenses {
		pl.Expenses.Total += total
	}
	pl.OperatingIncome = pl.GrossProfit - pl.Expenses.Total
	return pl, nil
}

// inventoryBounds resolves opening and closing stock valuations. The
// closing value falls back to the live valuation only for the current
// year; past years without a snapshot report zero.
func (c *Compiler) inventoryBounds(ctx context.Context, year int) (opening, closing int64, err error) {
	prev, ok, err := c.stock.SnapshotValuation(ctx, year-1)
	if err != nil {
		return 0, 0, err
	}
	if ok {
		opening = prev.Total()
	}
	cur, ok, err := c.stock.SnapshotValuation(ctx, year)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case ok:
		closing = cur.Total()
	case year == c.now().Year():
		live, err := c.stock.Valuation(ctx)
		if err != nil {
			return 0, 0, err
		}
		closing = live.Total()
	}
	return opening, closing, nil
}

// liveDepreciation recomputes the year's allowable expense for every
// active asset. Disposed assets are excluded; their final term was
// posted as a ledger row at disposal time and already counts.
func (c *Compiler) liveDepreciation(ctx context.Context, year int) (int64, error) {
	active, err := c.assets.ListAssets(ctx, false)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, a := range active {
		if a.Method == assets.MethodStraightLine && a.LifespanYears <= 0 {
			continue
		}
		total += assets.Depreciate(a, year).AllowableExpense
	}
	return total, nil
}

// BalanceSheet compiles the as-of-Dec-31 statement for a year.
func (c *Compiler) BalanceSheet(ctx context.Context, year int) (BalanceSheet, error) {
	return compile(ctx, c, "bs", year, func(ctx context.Context) (BalanceSheet, error) {
		return c.buildBalanceSheet(ctx, year)
	})
}

func (c *Compiler) buildBalanceSheet(ctx context.Context, year int) (BalanceSheet, error) {
	bs := BalanceSheet{Year: year}
	limit := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)

	opening, err := c.opening.OpeningBalances(ctx, year)
	if err != nil {
		return bs, err
	}

	cashFlow, err := c.stats.CashFlow(ctx, limit)
	if err != nil {
		return bs, err
	}
	rawCash := cashFlow + opening.Cash
	var cashDeficit int64
	if rawCash < 0 {
		// Negative cash means the owner covered the shortfall.
		cashDeficit = -rawCash
		rawCash = 0
	}
	bs.Assets.Cash = rawCash

	depositsFlow, err := c.stats.DepositsFlow(ctx, limit)
	if err != nil {
		return bs, err
	}
	bs.Assets.Deposits = depositsFlow + opening.Deposits

	receivables, err := c.stats.Receivables(ctx, limit)
	if err != nil {
		return bs, err
	}
	bs.Assets.Receivables = receivables + opening.Receivables

	_, closing, err := c.inventoryBounds(ctx, year)
	if err != nil {
		return bs, err
	}
	bs.Assets.Inventory = closing

	fixed, err := c.fixedAssetValue(ctx, year, limit)
	if err != nil {
		return bs, err
	}
	bs.Assets.FixedAssets = fixed

	drawings, err := c.stats.Drawings(ctx, limit)
	if err != nil {
		return bs, err
	}
	bs.Assets.Drawings = drawings

	bs.Assets.Total = bs.Assets.Cash + bs.Assets.Deposits + bs.Assets.Receivables +
		bs.Assets.Inventory + bs.Assets.FixedAssets + bs.Assets.Drawings

	payables, err := c.stats.Payables(ctx, limit)
	if err != nil {
		return bs, err
	}
	bs.Liabilities.Payables = payables + opening.Payables

	base, err := c.stats.BorrowingsBase(ctx, limit)
	if err != nil {
		return bs, err
	}
	borrowingsBase := base + cashDeficit + opening.Borrowings

	pl, err := c.ProfitLoss(ctx, year)
	if err != nil {
		return bs, err
	}
	bs.Equity.Capital = opening.Capital
	bs.Equity.CurrentIncome = pl.OperatingIncome
	bs.Equity.Total = bs.Equity.Capital + bs.Equity.CurrentIncome

	// Whatever the two sides disagree by lands in owner's borrowings.
	// The plug is reported and logged, never silent.
	known := bs.Liabilities.Payables + borrowingsBase + bs.Equity.Total
	bs.Plug = bs.Assets.Total - known
	bs.Liabilities.Borrowings = borrowingsBase + bs.Plug
	bs.Liabilities.Total = bs.Liabilities.Payables + bs.Liabilities.Borrowings
	bs.NetAssets = bs.Assets.Total - bs.Liabilities.Total

	if bs.Plug != 0 {
		c.logger.Info("balance sheet plug absorbed into borrowings",
			slog.Int("year", year), slog.Int64("plug", bs.Plug))
	}
	if abs(bs.Plug) > c.plugThreshold {
		c.logger.Warn("balance sheet plug exceeds threshold, books need review",
			slog.Int("year", year), slog.Int64("plug", bs.Plug), slog.Int64("threshold", c.plugThreshold))
	}
	return bs, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// fixedAssetValue sums year-end book values of assets owned by the
// limit date. Disposed assets carry no book value.
func (c *Compiler) fixedAssetValue(ctx context.Context, year int, limit time.Time) (int64, error) {
	owned, err := c.assets.ListAssets(ctx, false)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, a := range owned {
		if a.PurchaseDate.After(limit) {
			continue
		}
		if a.Method == assets.MethodStraightLine && a.LifespanYears <= 0 {
			continue
		}
		total += assets.Depreciate(a, year).BookValue
	}
	return total, nil
}

// MonthlySummary compiles the blue return page-2 monthly table.
func (c *Compiler) MonthlySummary(ctx context.Context, year int) (MonthlySummary, error) {
	return compile(ctx, c, "monthly", year, func(ctx context.Context) (MonthlySummary, error) {
		return c.buildMonthlySummary(ctx, year)
	})
}

func (c *Compiler) buildMonthlySummary(ctx context.Context, year int) (MonthlySummary, error) {
	summary := MonthlySummary{Year: year}

	sales, err := c.stats.MonthlyByCategory(ctx, year, ledger.EntryIncome, ledger.CategorySales)
	if err != nil {
		return summary, err
	}
	house, err := c.stats.MonthlyByCategory(ctx, year, ledger.EntryIncome, ledger.CategoryHouseConsumption)
	if err != nil {
		return summary, err
	}
	misc, err := c.stats.MonthlyByCategory(ctx, year, ledger.EntryIncome, ledger.CategoryMiscIncome)
	if err != nil {
		return summary, err
	}
	purchases, err := c.stats.MonthlyByCategory(ctx, year, ledger.EntryExpense, ledger.CategoryPurchases)
	if err != nil {
		return summary, err
	}

	summary.Months = make([]MonthlyRow, 12)
	for m := 0; m < 12; m++ {
		row := MonthlyRow{
			Month:            m + 1,
			Sales:            sales[m],
			HouseConsumption: house[m],
			MiscIncome:       misc[m],
			Purchases:        purchases[m],
		}
		summary.Months[m] = row
		summary.Totals.Sales += row.Sales
		summary.Totals.HouseConsumption += row.HouseConsumption
		summary.Totals.MiscIncome += row.MiscIncome
		summary.Totals.Purchases += row.Purchases
	}
	return summary, nil
}

// Summary compiles the dashboard KPIs for a year.
func (c *Compiler) Summary(ctx context.Context, year int) (SummaryStats, error) {
	return compile(ctx, c, "summary", year, func(ctx context.Context) (SummaryStats, error) {
		return c.buildSummary(ctx, year)
	})
}

func (c *Compiler) buildSummary(ctx context.Context, year int) (SummaryStats, error) {
	stats := SummaryStats{Year: year}

	income, err := c.stats.GrossTotal(ctx, year, ledger.EntryIncome)
	if err != nil {
		return stats, err
	}
	expenses, err := c.stats.GrossTotal(ctx, year, ledger.EntryExpense)
	if err != nil {
		return stats, err
	}
	stats.Income = income
	stats.Expenses = expenses
	stats.Profit = income - expenses
	// Rough consumption tax estimate on tax-inclusive income.
	stats.TaxLiability = int64(math.Round(float64(income) * 10 / 110))

	stats.Receivables.BySource = map[string]int64{}
	for _, source := range []string{ledger.SourcePlatformA, ledger.SourcePlatformB} {
		pending, err := c.stats.PendingBySource(ctx, source)
		if err != nil {
			return stats, err
		}
		stats.Receivables.BySource[source] = pending
		stats.Receivables.Total += pending
	}
	return stats, nil
}
