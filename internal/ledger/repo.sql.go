package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/db"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

const transactionColumns = `id, date, type, category, sub_category, description,
amount_entered, amount_gross, fee, shipping_fee, amount_net, payment_source,
is_husband_paid, partner_name, tax_rate, invoice_no, debit_account,
credit_account, status, deposit_date, receipt_path, is_delayed, generated_by,
fiscal_year, parent_id, source_asset_id, deleted_at, created_at, updated_at`

// Repository persists ledger rows and audit entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Date, &t.Type, &t.Category, &t.SubCategory, &t.Description,
		&t.AmountEntered, &t.AmountGross, &t.Fee, &t.ShippingFee, &t.AmountNet, &t.PaymentSource,
		&t.IsHusbandPaid, &t.PartnerName, &t.TaxRate, &t.InvoiceNo, &t.DebitAccount,
		&t.CreditAccount, &t.Status, &t.DepositDate, &t.ReceiptPath, &t.IsDelayed, &t.GeneratedBy,
		&t.FiscalYear, &t.ParentID, &t.SourceAssetID, &t.DeletedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, shared.ErrNotFound
	}
	return t, err
}

func getTransaction(ctx context.Context, q queryer, id int64) (Transaction, error) {
	row := q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1 AND deleted_at IS NULL`, transactionColumns), id)
	return scanTransaction(row)
}

// GetTransaction loads one live row by id.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return getTransaction(ctx, r.pool, id)
}

func (r *txRepository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return getTransaction(ctx, r.tx, id)
}

func (r *txRepository) GetChild(ctx context.Context, parentID int64, category string) (Transaction, error) {
	row := r.tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM transactions
WHERE parent_id = $1 AND category = $2 AND type = 'expense' AND deleted_at IS NULL`, transactionColumns), parentID, category)
	return scanTransaction(row)
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (date, type, category, sub_category, description,
amount_entered, amount_gross, fee, shipping_fee, amount_net, payment_source, is_husband_paid,
partner_name, tax_rate, invoice_no, debit_account, credit_account, status, deposit_date,
receipt_path, is_delayed, generated_by, fiscal_year, parent_id, source_asset_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)
RETURNING id`,
		t.Date, t.Type, t.Category, t.SubCategory, t.Description,
		t.AmountEntered, t.AmountGross, t.Fee, t.ShippingFee, t.AmountNet, t.PaymentSource, t.IsHusbandPaid,
		t.PartnerName, t.TaxRate, t.InvoiceNo, t.DebitAccount, t.CreditAccount, t.Status, t.DepositDate,
		t.ReceiptPath, t.IsDelayed, t.GeneratedBy, t.FiscalYear, t.ParentID, t.SourceAssetID, t.CreatedAt, t.UpdatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateTransaction(ctx context.Context, t Transaction) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transactions SET date=$2, type=$3, category=$4, sub_category=$5,
description=$6, amount_entered=$7, amount_gross=$8, fee=$9, shipping_fee=$10, amount_net=$11,
payment_source=$12, is_husband_paid=$13, partner_name=$14, tax_rate=$15, invoice_no=$16,
debit_account=$17, credit_account=$18, status=$19, deposit_date=$20, receipt_path=$21,
is_delayed=$22, updated_at=$23
WHERE id = $1 AND deleted_at IS NULL`,
		t.ID, t.Date, t.Type, t.Category, t.SubCategory,
		t.Description, t.AmountEntered, t.AmountGross, t.Fee, t.ShippingFee, t.AmountNet,
		t.PaymentSource, t.IsHusbandPaid, t.PartnerName, t.TaxRate, t.InvoiceNo,
		t.DebitAccount, t.CreditAccount, t.Status, t.DepositDate, t.ReceiptPath,
		t.IsDelayed, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) DeleteRow(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return err
}

func (r *txRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE transactions SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) SoftDeleteChildren(ctx context.Context, parentID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE transactions SET deleted_at = $2 WHERE parent_id = $1 AND deleted_at IS NULL`, parentID, at)
	return err
}

func (r *txRepository) SoftDeleteByAsset(ctx context.Context, assetID int64, at time.Time) ([]int, error) {
	rows, err := r.tx.Query(ctx, `UPDATE transactions SET deleted_at = $2
WHERE source_asset_id = $1 AND deleted_at IS NULL RETURNING fiscal_year`, assetID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := map[int]bool{}
	var years []int
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, err
		}
		if seen[year] {
			continue
		}
		seen[year] = true
		years = append(years, year)
	}
	return years, rows.Err()
}

func (r *txRepository) DeleteGenerated(ctx context.Context, year int, generated GeneratedTag, assetID int64) (int64, error) {
	sql := `DELETE FROM transactions WHERE fiscal_year = $1 AND generated_by = $2`
	args := []any{year, generated}
	if assetID > 0 {
		sql += ` AND source_asset_id = $3`
		args = append(args, assetID)
	}
	tag, err := r.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *txRepository) InsertAudit(ctx context.Context, entry AuditEntry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO audit_log (transaction_id, action, old_data, new_data, changed_by, changed_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		entry.TransactionID, entry.Action, entry.OldData, entry.NewData, entry.ChangedBy, entry.ChangedAt)
	return err
}

// ListTransactions applies the query filter; soft-deleted rows are always
// excluded. Filtering by the commission-fee category also surfaces income
// rows carrying a nonzero fee.
func (r *Repository) ListTransactions(ctx context.Context, filter QueryFilter) ([]Transaction, error) {
	var (
		conds = []string{"deleted_at IS NULL"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Year > 0 && filter.DateFrom.IsZero() && filter.DateTo.IsZero() {
		conds = append(conds, fmt.Sprintf("EXTRACT(YEAR FROM date) = %s", arg(filter.Year)))
	}
	if !filter.DateFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("date >= %s", arg(filter.DateFrom)))
	}
	if !filter.DateTo.IsZero() {
		conds = append(conds, fmt.Sprintf("date <= %s", arg(filter.DateTo)))
	}
	if filter.Category != "" {
		if filter.Category == CategoryCommissionFee {
			conds = append(conds, fmt.Sprintf("(category = %s OR (type = 'income' AND fee > 0))", arg(filter.Category)))
		} else {
			conds = append(conds, fmt.Sprintf("category = %s", arg(filter.Category)))
		}
	}
	if filter.AmountMin != nil {
		conds = append(conds, fmt.Sprintf("amount_gross >= %s", arg(*filter.AmountMin)))
	}
	if filter.AmountMax != nil {
		conds = append(conds, fmt.Sprintf("amount_gross <= %s", arg(*filter.AmountMax)))
	}
	if filter.Keyword != "" {
		like := arg("%" + filter.Keyword + "%")
		conds = append(conds, fmt.Sprintf("(partner_name ILIKE %[1]s OR description ILIKE %[1]s OR category ILIKE %[1]s OR payment_source ILIKE %[1]s)", like))
	}

	sql := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY date DESC, id DESC`,
		transactionColumns, strings.Join(conds, " AND "))
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// ListAuditLog returns the change history of one transaction, newest first.
func (r *Repository) ListAuditLog(ctx context.Context, transactionID int64) ([]AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, action, old_data, new_data, changed_by, changed_at
FROM audit_log WHERE transaction_id = $1 ORDER BY changed_at DESC, id DESC`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Action, &e.OldData, &e.NewData, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SumExpense totals live expense rows for a category/sub-category in one
// year, optionally skipping rows generated by a year-end step.
func (r *Repository) SumExpense(ctx context.Context, year int, category, subCategory string, excludeTag GeneratedTag) (int64, error) {
	sql := `SELECT COALESCE(SUM(amount_gross), 0) FROM transactions
WHERE type = 'expense' AND category = $1 AND EXTRACT(YEAR FROM date) = $2 AND deleted_at IS NULL`
	args := []any{category, year}
	if subCategory != "" {
		args = append(args, subCategory)
		sql += fmt.Sprintf(" AND sub_category = %s", fmt.Sprintf("$%d", len(args)))
	} else {
		sql += " AND (sub_category = '' OR sub_category IS NULL)"
	}
	if excludeTag != GeneratedNone {
		args = append(args, excludeTag)
		sql += fmt.Sprintf(" AND generated_by <> $%d", len(args))
	}
	var total int64
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&total)
	return total, err
}
