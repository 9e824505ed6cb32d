package closing

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aoiro-ledger/aoiro-ledger/internal/assets"
	"github.com/aoiro-ledger/aoiro-ledger/internal/inventory"
	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

type generatedKey struct {
	year int
	tag  ledger.GeneratedTag
}

type memLedger struct {
	nextID    int64
	generated map[generatedKey][]ledger.Transaction
	expenses  map[string]int64 // "category|sub" -> total
}

func newMemLedger() *memLedger {
	return &memLedger{
		generated: map[generatedKey][]ledger.Transaction{},
		expenses:  map[string]int64{},
	}
}

func (m *memLedger) SumExpense(_ context.Context, _ int, category, subCategory string, _ ledger.GeneratedTag) (int64, error) {
	return m.expenses[category+"|"+subCategory], nil
}

func (m *memLedger) ReplaceGenerated(_ context.Context, year int, tag ledger.GeneratedTag, entries []ledger.GeneratedInput) ([]ledger.Transaction, error) {
	key := generatedKey{year: year, tag: tag}
	var posted []ledger.Transaction
	for _, in := range entries {
		if in.Amount <= 0 {
			continue
		}
		m.nextID++
		posted = append(posted, ledger.Transaction{
			ID:          m.nextID,
			Date:        in.Date,
			Type:        in.Type,
			Category:    in.Category,
			SubCategory: in.SubCategory,
			Description: in.Description,
			AmountGross: in.Amount,
			AmountNet:   in.Amount,
			GeneratedBy: in.Tag,
			FiscalYear:  in.FiscalYear,
		})
	}
	m.generated[key] = posted
	return posted, nil
}

type memStock struct {
	valuation inventory.Valuation
	snapshots map[int]inventory.Valuation
	taken     int
}

func (m *memStock) TakeSnapshot(_ context.Context, year int, date time.Time) (inventory.Snapshot, error) {
	if m.snapshots == nil {
		m.snapshots = map[int]inventory.Valuation{}
	}
	m.snapshots[year] = m.valuation
	m.taken++
	return inventory.Snapshot{
		Year:           year,
		SnapshotDate:   date,
		TotalValuation: m.valuation.Total(),
	}, nil
}

func (m *memStock) SnapshotValuation(_ context.Context, year int) (inventory.Valuation, bool, error) {
	v, ok := m.snapshots[year]
	return v, ok, nil
}

type memAssets struct{ computations map[int64]assets.Computation }

func (m *memAssets) ComputeAll(_ context.Context, _ int) (map[int64]assets.Computation, error) {
	return m.computations, nil
}

type memLock struct{ year int }

func (m *memLock) LockedYear(_ context.Context) (int, error) { return m.year, nil }

func (m *memLock) SetLockedYear(_ context.Context, year int) error {
	m.year = year
	return nil
}

type memInvalidator struct{ years []int }

func (m *memInvalidator) Invalidate(_ context.Context, year int) { m.years = append(m.years, year) }

func newTestPipeline(l *memLedger, stock *memStock, a *memAssets, lock *memLock, inv *memInvalidator) *Pipeline {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return NewPipeline(logger, l, stock, a, lock, inv)
}

func closingDate(year int) time.Time {
	return time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)
}

func TestRunSnapshotPostsMerchandiseAndSupplies(t *testing.T) {
	l := newMemLedger()
	stock := &memStock{valuation: inventory.Valuation{Merchandise: 150_000, Supplies: 12_000}}
	p := newTestPipeline(l, stock, &memAssets{}, &memLock{}, &memInvalidator{})

	result, err := p.RunSnapshot(context.Background(), 2024, closingDate(2024))
	require.NoError(t, err)
	require.Equal(t, int64(162_000), result.TotalValuation)
	require.Len(t, result.Entries, 2)
	require.Equal(t, "2024年度 期末棚卸 (商品)", result.Entries[0].Description)
	require.Equal(t, int64(150_000), result.Entries[0].AmountGross)
	require.Equal(t, "2024年度 期末棚卸 (貯蔵品・未使用分)", result.Entries[1].Description)
	require.Equal(t, ledger.GeneratedSnapshot, result.Entries[0].GeneratedBy)
	require.Equal(t, 2024, result.Entries[0].FiscalYear)
}

func TestRunSnapshotSkipsEmptySupplies(t *testing.T) {
	l := newMemLedger()
	stock := &memStock{valuation: inventory.Valuation{Merchandise: 90_000}}
	p := newTestPipeline(l, stock, &memAssets{}, &memLock{}, &memInvalidator{})

	result, err := p.RunSnapshot(context.Background(), 2024, closingDate(2024))
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.Equal(t, int64(90_000), result.Merchandise)
	require.Zero(t, result.Supplies)
}

func TestRunSnapshotIsIdempotent(t *testing.T) {
	l := newMemLedger()
	stock := &memStock{valuation: inventory.Valuation{Merchandise: 70_000}}
	p := newTestPipeline(l, stock, &memAssets{}, &memLock{}, &memInvalidator{})

	_, err := p.RunSnapshot(context.Background(), 2024, closingDate(2024))
	require.NoError(t, err)
	_, err = p.RunSnapshot(context.Background(), 2024, closingDate(2024))
	require.NoError(t, err)

	rows := l.generated[generatedKey{year: 2024, tag: ledger.GeneratedSnapshot}]
	require.Len(t, rows, 1)
	require.Equal(t, 2, stock.taken)
}

func TestRunDepreciationTotals(t *testing.T) {
	a := &memAssets{computations: map[int64]assets.Computation{
		1: {Year: 2024, AllowableExpense: 60_000, BookValue: 420_000},
		2: {Year: 2024, AllowableExpense: 25_000, BookValue: 75_000},
	}}
	inv := &memInvalidator{}
	p := newTestPipeline(newMemLedger(), &memStock{}, a, &memLock{}, inv)

	result, err := p.RunDepreciation(context.Background(), 2024)
	require.NoError(t, err)
	require.Equal(t, int64(85_000), result.Total)
	require.Equal(t, []int{2024}, inv.years)
}

func TestRunApportionmentFloorsPrivateShare(t *testing.T) {
	l := newMemLedger()
	l.expenses["水道光熱費|電気代"] = 10_001
	p := newTestPipeline(l, &memStock{}, &memAssets{}, &memLock{}, &memInvalidator{})

	result, err := p.RunApportionment(context.Background(), 2024, closingDate(2024),
		[]Rule{{Category: "水道光熱費", SubCategory: "電気代", Ratio: 60}})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	// 10,001 × 40% = 4,000.4 → floored
	require.Equal(t, int64(4_000), result.Entries[0].PrivateAmount)

	rows := l.generated[generatedKey{year: 2024, tag: ledger.GeneratedApportionment}]
	require.Len(t, rows, 1)
	require.Equal(t, "2024年度 家事按分 (電気代) (事業割合 60%)", rows[0].Description)
}

func TestRunApportionmentSkipsDegenerateRatios(t *testing.T) {
	l := newMemLedger()
	l.expenses["地代家賃|"] = 600_000
	p := newTestPipeline(l, &memStock{}, &memAssets{}, &memLock{}, &memInvalidator{})

	result, err := p.RunApportionment(context.Background(), 2024, closingDate(2024), []Rule{
		{Category: "地代家賃", Ratio: 0},
		{Category: "地代家賃", Ratio: 100},
	})
	require.NoError(t, err)
	require.Empty(t, result.Entries)
}

func TestRunApportionmentSkipsZeroExpense(t *testing.T) {
	p := newTestPipeline(newMemLedger(), &memStock{}, &memAssets{}, &memLock{}, &memInvalidator{})

	result, err := p.RunApportionment(context.Background(), 2024, closingDate(2024),
		[]Rule{{Category: "通信費", Ratio: 50}})
	require.NoError(t, err)
	require.Empty(t, result.Entries)
}

func TestStepsRefuseLockedYear(t *testing.T) {
	lock := &memLock{year: 2024}
	p := newTestPipeline(newMemLedger(), &memStock{}, &memAssets{}, lock, &memInvalidator{})

	_, err := p.RunSnapshot(context.Background(), 2024, closingDate(2024))
	var locked *shared.LockedPeriodError
	require.ErrorAs(t, err, &locked)
	require.Equal(t, 2024, locked.Year)

	_, err = p.RunDepreciation(context.Background(), 2023)
	require.ErrorAs(t, err, &locked)

	// the year after the lock stays open
	_, err = p.RunDepreciation(context.Background(), 2025)
	require.NoError(t, err)
}

func TestLockYear(t *testing.T) {
	lock := &memLock{}
	p := newTestPipeline(newMemLedger(), &memStock{}, &memAssets{}, lock, &memInvalidator{})

	require.NoError(t, p.LockYear(context.Background(), 2024))
	year, err := p.LockedYear(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2024, year)

	err = p.LockYear(context.Background(), 0)
	var invalid *shared.ValidationError
	require.ErrorAs(t, err, &invalid)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	raw := []byte(`rules:
  - category: 水道光熱費
    sub_category: 電気代
    ratio: 60
  - category: 地代家賃
    ratio: 40
`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "電気代", rules[0].SubCategory)
	require.Equal(t, 40, rules[1].Ratio)
	require.True(t, rules[0].Applicable())
}
