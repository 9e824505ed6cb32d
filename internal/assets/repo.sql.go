package assets

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/db"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

const assetColumns = `id, name, purchase_date, service_date, purchase_price,
	lifespan_years, method, business_ratio, current_book_value, status,
	notes, deleted_at, created_at, updated_at`

// Repository is the pgx-backed asset store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) GetAsset(ctx context.Context, id int64) (FixedAsset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanAsset(row)
}

func (r *Repository) ListAssets(ctx context.Context, includeDisposed bool) ([]FixedAsset, error) {
	q := `SELECT ` + assetColumns + ` FROM fixed_assets WHERE deleted_at IS NULL`
	if !includeDisposed {
		q += ` AND status = 'ACTIVE'`
	}
	q += ` ORDER BY purchase_date, id`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FixedAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetAsset(ctx context.Context, id int64) (FixedAsset, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	return scanAsset(row)
}

func (r *txRepository) InsertAsset(ctx context.Context, a FixedAsset) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO fixed_assets (
			name, purchase_date, service_date, purchase_price, lifespan_years,
			method, business_ratio, current_book_value, status, notes,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		a.Name, a.PurchaseDate, a.ServiceDate, a.PurchasePrice, a.LifespanYears,
		a.Method, a.BusinessRatio, a.CurrentBookValue, a.Status, a.Notes,
		a.CreatedAt, a.UpdatedAt,
	).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateAsset(ctx context.Context, a FixedAsset) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE fixed_assets SET
			name = $2, purchase_date = $3, service_date = $4, purchase_price = $5,
			lifespan_years = $6, method = $7, business_ratio = $8, notes = $9,
			updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL`,
		a.ID, a.Name, a.PurchaseDate, a.ServiceDate, a.PurchasePrice,
		a.LifespanYears, a.Method, a.BusinessRatio, a.Notes, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) UpdateBookValue(ctx context.Context, id, bookValue int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE fixed_assets SET current_book_value = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`,
		id, bookValue, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) MarkDisposed(ctx context.Context, id int64, notes string, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE fixed_assets SET
			status = 'DISPOSED', current_book_value = 0, notes = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL`,
		id, notes, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE fixed_assets SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (FixedAsset, error) {
	var a FixedAsset
	err := row.Scan(
		&a.ID, &a.Name, &a.PurchaseDate, &a.ServiceDate, &a.PurchasePrice,
		&a.LifespanYears, &a.Method, &a.BusinessRatio, &a.CurrentBookValue,
		&a.Status, &a.Notes, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return FixedAsset{}, shared.ErrNotFound
	}
	return a, err
}
