package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

type memInventoryRepo struct {
	nextID    int64
	items     map[int64]*Item
	snapshots map[int]*Snapshot
}

func newMemInventoryRepo() *memInventoryRepo {
	return &memInventoryRepo{items: map[int64]*Item{}, snapshots: map[int]*Snapshot{}}
}

func (m *memInventoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memInventoryRepo) GetItem(_ context.Context, id int64) (Item, error) {
	item, ok := m.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return *item, nil
}

func (m *memInventoryRepo) ListItems(_ context.Context, status ItemStatus) ([]Item, error) {
	var out []Item
	for _, item := range m.items {
		if status != "" && item.Status != status {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (m *memInventoryRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = &item
	return item.ID, nil
}

func (m *memInventoryRepo) UpdateItem(_ context.Context, item Item) error {
	if _, ok := m.items[item.ID]; !ok {
		return shared.ErrNotFound
	}
	m.items[item.ID] = &item
	return nil
}

func (m *memInventoryRepo) DeleteItem(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memInventoryRepo) UpsertSnapshot(_ context.Context, snap Snapshot) error {
	m.snapshots[snap.Year] = &snap
	return nil
}

func (m *memInventoryRepo) GetSnapshot(_ context.Context, year int) (Snapshot, error) {
	snap, ok := m.snapshots[year]
	if !ok {
		return Snapshot{}, shared.ErrNotFound
	}
	return *snap, nil
}

func (m *memInventoryRepo) ListSnapshots(_ context.Context) ([]Snapshot, error) {
	var out []Snapshot
	for _, snap := range m.snapshots {
		out = append(out, *snap)
	}
	return out, nil
}

func newTestService(repo *memInventoryRepo) *Service {
	return NewService(repo).WithNow(func() time.Time {
		return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	})
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCreateBredForcesZeroCost(t *testing.T) {
	svc := newTestService(newMemInventoryRepo())

	item, err := svc.Create(context.Background(), ItemInput{
		Name:         "hatchling clutch",
		SourceType:   SourceBred,
		Quantity:     5,
		CostPrice:    3_000,
		PurchaseDate: day(2024, 8, 1),
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), item.CostPrice)
	require.Equal(t, ItemActive, item.Status)
	require.Equal(t, int64(0), item.Value())
}

func TestCreateFromPurchaseUnitCost(t *testing.T) {
	repo := newMemInventoryRepo()
	svc := newTestService(repo)

	item, err := svc.CreateFromPurchase(context.Background(), PurchaseItemInput{
		Name:         "gecko pair",
		Quantity:     3,
		GrossAmount:  100_000,
		PurchaseDate: day(2024, 9, 1),
	})
	require.NoError(t, err)
	require.Equal(t, SourcePurchased, item.SourceType)
	require.Equal(t, int64(33_333), item.CostPrice)
	require.Equal(t, int64(99_999), item.Value())

	_, err = svc.CreateFromPurchase(context.Background(), PurchaseItemInput{
		Name:        "bad",
		Quantity:    0,
		GrossAmount: 100,
	})
	require.ErrorAs(t, err, new(*shared.ValidationError))
}

func TestValuationSplitsMerchandiseAndSupplies(t *testing.T) {
	repo := newMemInventoryRepo()
	svc := newTestService(repo)

	mustCreate := func(in ItemInput) Item {
		item, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		return item
	}

	mustCreate(ItemInput{Name: "adult male", SourceType: SourcePurchased, Quantity: 1, CostPrice: 40_000, PurchaseDate: day(2024, 3, 1)})
	mustCreate(ItemInput{Name: "juveniles", SourceType: SourceBred, Quantity: 10, PurchaseDate: day(2024, 8, 1)})
	mustCreate(ItemInput{Name: "feed bags", SourceType: SourceSupply, Quantity: 4, CostPrice: 2_500, PurchaseDate: day(2024, 11, 1)})
	sold := mustCreate(ItemInput{Name: "sold female", SourceType: SourcePurchased, Quantity: 1, CostPrice: 30_000, PurchaseDate: day(2024, 2, 1)})

	_, err := svc.Update(context.Background(), sold.ID, ItemInput{
		Name:         sold.Name,
		SourceType:   sold.SourceType,
		Quantity:     sold.Quantity,
		CostPrice:    sold.CostPrice,
		PurchaseDate: sold.PurchaseDate,
		Status:       ItemSold,
	})
	require.NoError(t, err)

	v, err := svc.Valuation(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(40_000), v.Merchandise)
	require.Equal(t, int64(10_000), v.Supplies)
	require.Equal(t, int64(50_000), v.Total())
}

func TestTakeSnapshotUpserts(t *testing.T) {
	repo := newMemInventoryRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), ItemInput{
		Name: "adult male", SourceType: SourcePurchased, Quantity: 1, CostPrice: 40_000, PurchaseDate: day(2024, 3, 1),
	})
	require.NoError(t, err)

	first, err := svc.TakeSnapshot(context.Background(), 2024, day(2024, 12, 31))
	require.NoError(t, err)
	require.Equal(t, int64(40_000), first.TotalValuation)

	_, err = svc.Create(context.Background(), ItemInput{
		Name: "feed", SourceType: SourceSupply, Quantity: 2, CostPrice: 1_000, PurchaseDate: day(2024, 12, 1),
	})
	require.NoError(t, err)

	second, err := svc.TakeSnapshot(context.Background(), 2024, day(2024, 12, 31))
	require.NoError(t, err)
	require.Equal(t, int64(42_000), second.TotalValuation)
	require.Len(t, repo.snapshots, 1)

	v, ok, err := svc.SnapshotValuation(context.Background(), 2024)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(40_000), v.Merchandise)
	require.Equal(t, int64(2_000), v.Supplies)

	_, ok, err = svc.SnapshotValuation(context.Background(), 2023)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeleteItem(t *testing.T) {
	repo := newMemInventoryRepo()
	svc := newTestService(repo)

	item, err := svc.Create(context.Background(), ItemInput{
		Name: "typo entry", SourceType: SourceSupply, Quantity: 1, CostPrice: 500, PurchaseDate: day(2024, 4, 1),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), item.ID))
	_, err = svc.Get(context.Background(), item.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), item.ID), shared.ErrNotFound)
}
