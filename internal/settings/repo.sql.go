package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// Repository is the pgx-backed opening balances store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetOpeningBalances(ctx context.Context, year int) (OpeningBalances, error) {
	var b OpeningBalances
	err := r.pool.QueryRow(ctx, `
		SELECT year, cash, deposits, receivables, payables, borrowings, capital
		FROM opening_balances WHERE year = $1`, year,
	).Scan(&b.Year, &b.Cash, &b.Deposits, &b.Receivables, &b.Payables, &b.Borrowings, &b.Capital)
	if errors.Is(err, pgx.ErrNoRows) {
		return OpeningBalances{}, shared.ErrNotFound
	}
	return b, err
}

func (r *Repository) UpsertOpeningBalances(ctx context.Context, b OpeningBalances) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO opening_balances (year, cash, deposits, receivables, payables, borrowings, capital)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (year) DO UPDATE SET
			cash = EXCLUDED.cash,
			deposits = EXCLUDED.deposits,
			receivables = EXCLUDED.receivables,
			payables = EXCLUDED.payables,
			borrowings = EXCLUDED.borrowings,
			capital = EXCLUDED.capital`,
		b.Year, b.Cash, b.Deposits, b.Receivables, b.Payables, b.Borrowings, b.Capital,
	)
	return err
}
