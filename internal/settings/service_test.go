package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

type memSettingsRepo struct {
	byYear map[int]OpeningBalances
}

func (m *memSettingsRepo) GetOpeningBalances(_ context.Context, year int) (OpeningBalances, error) {
	b, ok := m.byYear[year]
	if !ok {
		return OpeningBalances{}, shared.ErrNotFound
	}
	return b, nil
}

func (m *memSettingsRepo) UpsertOpeningBalances(_ context.Context, b OpeningBalances) error {
	m.byYear[b.Year] = b
	return nil
}

func i64(v int64) *int64 { return &v }

func TestOpeningBalancesDefaultsToZero(t *testing.T) {
	svc := NewService(&memSettingsRepo{byYear: map[int]OpeningBalances{}})

	balances, err := svc.OpeningBalances(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, OpeningBalances{Year: 2025}, balances)
}

func TestUpdateOpeningBalancesMerges(t *testing.T) {
	repo := &memSettingsRepo{byYear: map[int]OpeningBalances{}}
	svc := NewService(repo)

	first, err := svc.UpdateOpeningBalances(context.Background(), 2025, OpeningBalancesPatch{
		Cash:     i64(50_000),
		Deposits: i64(300_000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(50_000), first.Cash)
	require.Equal(t, int64(300_000), first.Deposits)

	// A later patch touches one field and keeps the rest.
	second, err := svc.UpdateOpeningBalances(context.Background(), 2025, OpeningBalancesPatch{
		Borrowings: i64(120_000),
	})
	require.NoError(t, err)
	require.Equal(t, int64(50_000), second.Cash)
	require.Equal(t, int64(300_000), second.Deposits)
	require.Equal(t, int64(120_000), second.Borrowings)

	_, err = svc.UpdateOpeningBalances(context.Background(), 0, OpeningBalancesPatch{})
	require.ErrorAs(t, err, new(*shared.ValidationError))
}
