package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/db"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

const itemColumns = `id, name, source_type, quantity, cost_price, purchase_date, status, notes, created_at, updated_at`

// Repository is the pgx-backed store for stock lines and snapshots.
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

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.Name, &i.SourceType, &i.Quantity, &i.CostPrice,
		&i.PurchaseDate, &i.Status, &i.Notes, &i.CreatedAt, &i.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, shared.ErrNotFound
	}
	return i, err
}

func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
	return scanItem(row)
}

func (r *Repository) ListItems(ctx context.Context, status ItemStatus) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM inventory_items`
	var args []any
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY purchase_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	err := row.Scan(&s.ID, &s.Year, &s.SnapshotDate, &s.TotalValuation, &s.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, shared.ErrNotFound
	}
	return s, err
}

func (r *Repository) GetSnapshot(ctx context.Context, year int) (Snapshot, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, year, snapshot_date, total_valuation, data_json FROM inventory_snapshots WHERE year = $1`, year)
	return scanSnapshot(row)
}

func (r *Repository) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, year, snapshot_date, total_valuation, data_json FROM inventory_snapshots ORDER BY year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
	return scanItem(row)
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO inventory_items (name, source_type, quantity, cost_price, purchase_date, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		item.Name, item.SourceType, item.Quantity, item.CostPrice,
		item.PurchaseDate, item.Status, item.Notes, item.CreatedAt, item.UpdatedAt,
	).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE inventory_items SET
			name = $2, source_type = $3, quantity = $4, cost_price = $5,
			purchase_date = $6, status = $7, notes = $8, updated_at = $9
		WHERE id = $1`,
		item.ID, item.Name, item.SourceType, item.Quantity, item.CostPrice,
		item.PurchaseDate, item.Status, item.Notes, item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteItem(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	return err
}

func (r *txRepository) UpsertSnapshot(ctx context.Context, snap Snapshot) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO inventory_snapshots (year, snapshot_date, total_valuation, data_json)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (year) DO UPDATE SET
			snapshot_date = EXCLUDED.snapshot_date,
			total_valuation = EXCLUDED.total_valuation,
			data_json = EXCLUDED.data_json`,
		snap.Year, snap.SnapshotDate, snap.TotalValuation, snap.Data,
	)
	return err
}
