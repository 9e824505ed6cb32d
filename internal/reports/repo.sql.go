package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
)

// Repository runs the aggregate queries the compiler works from. All
// sums skip soft-deleted rows.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IncomeByCategory sums gross income per category for one year.
func (r *Repository) IncomeByCategory(ctx context.Context, year int) (map[string]int64, error) {
	return r.sumByCategory(ctx, `
		SELECT category, COALESCE(SUM(amount_gross), 0)
		FROM transactions
		WHERE type = 'income' AND EXTRACT(YEAR FROM date) = $1 AND deleted_at IS NULL
		GROUP BY category`, year)
}

// ExpenseByCategory sums gross expense per category for one year,
// excluding purchases (they belong to COGS) and engine-posted
// depreciation rows (depreciation is recomputed live).
func (r *Repository) ExpenseByCategory(ctx context.Context, year int) (map[string]int64, error) {
	return r.sumByCategory(ctx, `
		SELECT category, COALESCE(SUM(amount_gross), 0)
		FROM transactions
		WHERE type = 'expense' AND category <> $2
		  AND generated_by <> $3
		  AND EXTRACT(YEAR FROM date) = $1 AND deleted_at IS NULL
		GROUP BY category`, year, ledger.CategoryPurchases, ledger.GeneratedDepreciation)
}

func (r *Repository) sumByCategory(ctx context.Context, sql string, args ...any) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var category string
		var total int64
		if err := rows.Scan(&category, &total); err != nil {
			return nil, err
		}
		out[category] = total
	}
	return out, rows.Err()
}

// Purchases sums the gross purchases expense for one year.
func (r *Repository) Purchases(ctx context.Context, year int) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
		WHERE type = 'expense' AND category = $2
		  AND EXTRACT(YEAR FROM date) = $1 AND deleted_at IS NULL`,
		year, ledger.CategoryPurchases)
}

func (r *Repository) scalar(ctx context.Context, sql string, args ...any) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&total)
	return total, err
}

// CashFlow nets cash income against cash expense through the limit date.
func (r *Repository) CashFlow(ctx context.Context, limit time.Time) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount_gross ELSE -amount_gross END), 0)
		FROM transactions
		WHERE payment_source = $2 AND date <= $1 AND deleted_at IS NULL`,
		limit, ledger.SourceCash)
}

// DepositsFlow nets settled bank and platform income (gross minus fee
// and shipping) against bank expense through the limit date.
func (r *Repository) DepositsFlow(ctx context.Context, limit time.Time) (int64, error) {
	in, err := r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross - fee - shipping_fee), 0)
		FROM transactions
		WHERE type = 'income' AND status = 'settled'
		  AND payment_source IN ($2, $3, $4)
		  AND date <= $1 AND deleted_at IS NULL`,
		limit, ledger.SourceBank, ledger.SourcePlatformA, ledger.SourcePlatformB)
	if err != nil {
		return 0, err
	}
	out, err := r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0)
		FROM transactions
		WHERE type = 'expense' AND payment_source = $2
		  AND date <= $1 AND deleted_at IS NULL`,
		limit, ledger.SourceBank)
	if err != nil {
		return 0, err
	}
	return in - out, nil
}

// Receivables sums income not yet deposited as of the limit date, net
// of fee and shipping.
func (r *Repository) Receivables(ctx context.Context, limit time.Time) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross - fee - shipping_fee), 0)
		FROM transactions
		WHERE type = 'income' AND date <= $1
		  AND (status = 'unsettled' OR deposit_date > $1)
		  AND deleted_at IS NULL`, limit)
}

// Drawings sums owner-drawings expense through the limit date.
func (r *Repository) Drawings(ctx context.Context, limit time.Time) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
		WHERE type = 'expense' AND category = $2
		  AND date <= $1 AND deleted_at IS NULL`,
		limit, ledger.CategoryOwnerDrawings)
}

// Payables sums expense still owed as of the limit date. Private-card
// spend is excluded: the owner, not a vendor, is owed for those.
func (r *Repository) Payables(ctx context.Context, limit time.Time) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
		WHERE type = 'expense' AND payment_source <> $2
		  AND date <= $1
		  AND (status = 'unsettled' OR deposit_date > $1)
		  AND deleted_at IS NULL`,
		limit, ledger.SourcePrivateCard)
}

// BorrowingsBase sums the recorded owner-borrowings components through
// the limit date: private-card expense plus owner-injected income.
func (r *Repository) BorrowingsBase(ctx context.Context, limit time.Time) (int64, error) {
	recorded, err := r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
		WHERE type = 'expense' AND payment_source = $2
		  AND date <= $1 AND deleted_at IS NULL`,
		limit, ledger.SourcePrivateCard)
	if err != nil {
		return 0, err
	}
	injected, err := r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
		WHERE type = 'income' AND category = $2
		  AND date <= $1 AND deleted_at IS NULL`,
		limit, ledger.CategoryOwnerBorrowings)
	if err != nil {
		return 0, err
	}
	return recorded + injected, nil
}

// MonthlyByCategory sums gross amounts per month for one category.
func (r *Repository) MonthlyByCategory(ctx context.Context, year int, typ ledger.EntryType, category string) ([12]int64, error) {
	var buckets [12]int64
	rows, err := r.pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM date)::int, COALESCE(SUM(amount_gross), 0)
		FROM transactions
		WHERE type = $2 AND category = $3
		  AND EXTRACT(YEAR FROM date) = $1 AND deleted_at IS NULL
		GROUP BY 1`, year, typ, category)
	if err != nil {
		return buckets, err
	}
	defer rows.Close()
	for rows.Next() {
		var month int
		var total int64
		if err := rows.Scan(&month, &total); err != nil {
			return buckets, err
		}
		if month >= 1 && month <= 12 {
			buckets[month-1] = total
		}
	}
	return buckets, rows.Err()
}

// GrossTotal sums gross amounts of one entry type for a year.
func (r *Repository) GrossTotal(ctx context.Context, year int, typ ledger.EntryType) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
		WHERE type = $2 AND EXTRACT(YEAR FROM date) = $1 AND deleted_at IS NULL`,
		year, typ)
}

// PendingBySource sums unsettled net income per platform, all time.
func (r *Repository) PendingBySource(ctx context.Context, source string) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(amount_net), 0) FROM transactions
		WHERE payment_source = $1 AND status = 'unsettled' AND deleted_at IS NULL`,
		source)
}

// IncomeFees sums platform fees taken out of income rows for a year;
// the e-tax export reports them as commission expense (gross principle).
func (r *Repository) IncomeFees(ctx context.Context, year int) (int64, error) {
	return r.scalar(ctx, `
		SELECT COALESCE(SUM(fee), 0) FROM transactions
		WHERE type = 'income' AND EXTRACT(YEAR FROM date) = $1 AND deleted_at IS NULL`,
		year)
}
