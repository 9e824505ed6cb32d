package assets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

type memAssetRepo struct {
	nextID int64
	assets map[int64]*FixedAsset
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{assets: map[int64]*FixedAsset{}}
}

func (m *memAssetRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memAssetRepo) GetAsset(_ context.Context, id int64) (FixedAsset, error) {
	a, ok := m.assets[id]
	if !ok || a.DeletedAt != nil {
		return FixedAsset{}, shared.ErrNotFound
	}
	return *a, nil
}

func (m *memAssetRepo) ListAssets(_ context.Context, includeDisposed bool) ([]FixedAsset, error) {
	var out []FixedAsset
	for _, a := range m.assets {
		if a.DeletedAt != nil {
			continue
		}
		if !includeDisposed && a.Status == StatusDisposed {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAssetRepo) InsertAsset(_ context.Context, a FixedAsset) (int64, error) {
	m.nextID++
	a.ID = m.nextID
	m.assets[a.ID] = &a
	return a.ID, nil
}

func (m *memAssetRepo) UpdateAsset(_ context.Context, a FixedAsset) error {
	current, ok := m.assets[a.ID]
	if !ok || current.DeletedAt != nil {
		return shared.ErrNotFound
	}
	a.Status = current.Status
	a.CurrentBookValue = current.CurrentBookValue
	m.assets[a.ID] = &a
	return nil
}

func (m *memAssetRepo) UpdateBookValue(_ context.Context, id, bookValue int64, at time.Time) error {
	a, ok := m.assets[id]
	if !ok || a.DeletedAt != nil {
		return shared.ErrNotFound
	}
	a.CurrentBookValue = bookValue
	a.UpdatedAt = at
	return nil
}

func (m *memAssetRepo) MarkDisposed(_ context.Context, id int64, notes string, at time.Time) error {
	a, ok := m.assets[id]
	if !ok || a.DeletedAt != nil {
		return shared.ErrNotFound
	}
	a.Status = StatusDisposed
	a.CurrentBookValue = 0
	a.Notes = notes
	a.UpdatedAt = at
	return nil
}

func (m *memAssetRepo) SoftDelete(_ context.Context, id int64, at time.Time) error {
	a, ok := m.assets[id]
	if !ok || a.DeletedAt != nil {
		return shared.ErrNotFound
	}
	a.DeletedAt = &at
	return nil
}

// fakeJournal records postings keyed the way the ledger replaces them.
type fakeJournal struct {
	depreciation map[int64]*ledger.GeneratedInput
	appended     []ledger.GeneratedInput
	removed      []int64
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{depreciation: map[int64]*ledger.GeneratedInput{}}
}

func (f *fakeJournal) ReplaceAssetDepreciation(_ context.Context, _ int, assetID int64, entry *ledger.GeneratedInput) (*ledger.Transaction, error) {
	f.depreciation[assetID] = entry
	return nil, nil
}

func (f *fakeJournal) PostGenerated(_ context.Context, entries []ledger.GeneratedInput) ([]ledger.Transaction, error) {
	f.appended = append(f.appended, entries...)
	return nil, nil
}

func (f *fakeJournal) RemoveAssetEntries(_ context.Context, assetID int64) error {
	f.removed = append(f.removed, assetID)
	return nil
}

func newTestService(repo *memAssetRepo, journal *fakeJournal) *Service {
	return NewService(repo, journal).WithNow(func() time.Time {
		return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	})
}

func TestComputePostsEntryAndBookValue(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	created, err := svc.Create(context.Background(), AssetInput{
		Name:          "incubator",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 480_000,
		LifespanYears: 4,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
	})
	require.NoError(t, err)
	require.Equal(t, int64(480_000), created.CurrentBookValue)

	comp, err := svc.Compute(context.Background(), created.ID, 2024)
	require.NoError(t, err)
	require.Equal(t, int64(60_000), comp.AllowableExpense)
	require.Equal(t, int64(420_000), comp.BookValue)

	entry := journal.depreciation[created.ID]
	require.NotNil(t, entry)
	require.Equal(t, int64(60_000), entry.Amount)
	require.Equal(t, ledger.GeneratedDepreciation, entry.Tag)
	require.Equal(t, 2024, entry.FiscalYear)
	require.Equal(t, created.ID, entry.SourceAssetID)
	require.Equal(t, ledger.AccountDepreciation, entry.Debit)
	require.Equal(t, ledger.AccountFixedAssets, entry.Credit)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(420_000), stored.CurrentBookValue)
}

func TestComputeClearsEntryWhenNothingDue(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	created, err := svc.Create(context.Background(), AssetInput{
		Name:          "incubator",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 480_000,
		LifespanYears: 4,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
	})
	require.NoError(t, err)

	// A year before service still runs, posting nothing.
	comp, err := svc.Compute(context.Background(), created.ID, 2023)
	require.NoError(t, err)
	require.Equal(t, int64(0), comp.AllowableExpense)
	require.Nil(t, journal.depreciation[created.ID])
}

func TestComputeRejectsZeroLifespan(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	id, err := repo.InsertAsset(context.Background(), FixedAsset{
		Name:          "broken master data",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 480_000,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
		Status:        StatusActive,
	})
	require.NoError(t, err)

	_, err = svc.Compute(context.Background(), id, 2024)
	var invalid *shared.ValidationError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "lifespan_years", invalid.Field)
}

func TestComputeAllSkipsZeroLifespan(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	good, err := svc.Create(context.Background(), AssetInput{
		Name:          "incubator",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 480_000,
		LifespanYears: 4,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
	})
	require.NoError(t, err)

	badID, err := repo.InsertAsset(context.Background(), FixedAsset{
		Name:          "no lifespan",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 100_000,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
		Status:        StatusActive,
	})
	require.NoError(t, err)

	results, err := svc.ComputeAll(context.Background(), 2024)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results, good.ID)
	require.NotContains(t, results, badID)
}

func TestDisposePostsBothLegs(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	created, err := svc.Create(context.Background(), AssetInput{
		Name:          "incubator",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 480_000,
		LifespanYears: 4,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
	})
	require.NoError(t, err)

	d, err := svc.Dispose(context.Background(), created.ID, day(2026, 6, 15), DisposalScrap, "motor burned out")
	require.NoError(t, err)
	require.Equal(t, int64(60_000), d.TermAllowable)
	require.Equal(t, int64(240_000), d.LossAllowable)

	require.Len(t, journal.appended, 2)
	require.Equal(t, ledger.GeneratedDisposal, journal.appended[0].Tag)
	require.Equal(t, ledger.CategoryDepreciation, journal.appended[0].Category)
	require.Equal(t, ledger.CategoryDisposalLoss, journal.appended[1].Category)
	require.Equal(t, ledger.AccountDisposalLoss, journal.appended[1].Debit)

	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDisposed, stored.Status)
	require.Equal(t, int64(0), stored.CurrentBookValue)
	require.Contains(t, stored.Notes, "除却")
	require.Contains(t, stored.Notes, "motor burned out")

	_, err = svc.Dispose(context.Background(), created.ID, day(2026, 7, 1), DisposalScrap, "")
	require.ErrorAs(t, err, new(*shared.ValidationError))
}

func TestDeleteRemovesGeneratedEntries(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	created, err := svc.Create(context.Background(), AssetInput{
		Name:          "mistake",
		PurchaseDate:  day(2024, 7, 1),
		PurchasePrice: 10_000,
		LifespanYears: 4,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	require.Equal(t, []int64{created.ID}, journal.removed)

	_, err = svc.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRefreshBookValuesUpdatesStaleOnly(t *testing.T) {
	repo := newMemAssetRepo()
	journal := newFakeJournal()
	svc := newTestService(repo, journal)

	service := day(2024, 7, 10)
	created, err := svc.Create(context.Background(), AssetInput{
		Name:          "breeding rack",
		PurchaseDate:  day(2024, 6, 28),
		ServiceDate:   &service,
		PurchasePrice: 480_000,
		LifespanYears: 4,
		Method:        MethodStraightLine,
		BusinessRatio: 100,
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshBookValues(context.Background(), 2024)
	require.NoError(t, err)
	require.Equal(t, 1, refreshed)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(420_000), got.CurrentBookValue)

	// A second run for the same year finds nothing stale.
	refreshed, err = svc.RefreshBookValues(context.Background(), 2024)
	require.NoError(t, err)
	require.Equal(t, 0, refreshed)

	refreshed, err = svc.RefreshBookValues(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, 1, refreshed)

	got, err = svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300_000), got.CurrentBookValue)
}
