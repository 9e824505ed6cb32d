package closing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LockStore persists the locked-through fiscal year. It backs the
// ledger's period check, so every mutation consults it.
type LockStore interface {
	LockedYear(ctx context.Context) (int, error)
	SetLockedYear(ctx context.Context, year int) error
}

// FiscalLockState is the single-row postgres store for the lock.
type FiscalLockState struct {
	pool *pgxpool.Pool
}

func NewFiscalLockState(pool *pgxpool.Pool) *FiscalLockState {
	return &FiscalLockState{pool: pool}
}

// LockedYear returns the locked-through year, zero when nothing is
// locked yet.
func (s *FiscalLockState) LockedYear(ctx context.Context) (int, error) {
	var year int
	err := s.pool.QueryRow(ctx,
		`SELECT locked_year FROM fiscal_lock WHERE id = 1`).Scan(&year)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return year, nil
}

func (s *FiscalLockState) SetLockedYear(ctx context.Context, year int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fiscal_lock (id, locked_year, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE
		SET locked_year = EXCLUDED.locked_year, updated_at = now()`,
		year)
	return err
}
