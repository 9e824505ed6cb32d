package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, filter QueryFilter) ([]Transaction, error)
	ListAuditLog(ctx context.Context, transactionID int64) ([]AuditEntry, error)
	SumExpense(ctx context.Context, year int, category, subCategory string, excludeTag GeneratedTag) (int64, error)
}

// TxRepository exposes the operations available inside one transaction.
type TxRepository interface {
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	GetChild(ctx context.Context, parentID int64, category string) (Transaction, error)
	DeleteRow(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	SoftDeleteChildren(ctx context.Context, parentID int64, at time.Time) error
	SoftDeleteByAsset(ctx context.Context, assetID int64, at time.Time) ([]int, error)
	DeleteGenerated(ctx context.Context, year int, tag GeneratedTag, assetID int64) (int64, error)
	InsertAudit(ctx context.Context, entry AuditEntry) error
}

// LockState reports the locked-through fiscal year, zero when unlocked.
type LockState interface {
	LockedYear(ctx context.Context) (int, error)
}

// Invalidator drops cached statements for a fiscal year once the ledger
// changes underneath them.
type Invalidator interface {
	Invalidate(ctx context.Context, year int)
}

// Service is the transaction manager: it owns every ledger mutation and
// the audit trail that goes with it.
type Service struct {
	repo  RepositoryPort
	lock  LockState
	cache Invalidator
	now   func() time.Time
}

// NewService constructs the transaction manager.
func NewService(repo RepositoryPort, lock LockState) *Service {
	return &Service{repo: repo, lock: lock, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithInvalidator registers the report cache to evict after every
// successful write, so statements never serve stale totals for a TTL.
func (s *Service) WithInvalidator(cache Invalidator) *Service {
	s.cache = cache
	return s
}

func (s *Service) ensureUnlocked(ctx context.Context, date time.Time) error {
	return s.ensureYearUnlocked(ctx, date.Year())
}

func (s *Service) ensureYearUnlocked(ctx context.Context, year int) error {
	if s.lock == nil {
		return nil
	}
	locked, err := s.lock.LockedYear(ctx)
	if err != nil {
		return err
	}
	if locked > 0 && year <= locked {
		return &shared.LockedPeriodError{Year: locked}
	}
	return nil
}

// invalidate evicts the cached statements of every affected year.
func (s *Service) invalidate(ctx context.Context, years ...int) {
	if s.cache == nil {
		return
	}
	seen := make(map[int]bool, len(years))
	for _, year := range years {
		if year <= 0 || seen[year] {
			continue
		}
		seen[year] = true
		s.cache.Invalidate(ctx, year)
	}
}

// Create validates, derives and persists a new ledger entry together with
// its fee/shipping children.
func (s *Service) Create(ctx context.Context, in EntryInput) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := s.ensureUnlocked(ctx, in.Date); err != nil {
		return Transaction{}, err
	}

	now := s.now()
	entry := s.derive(in)
	entry.CreatedAt = now
	entry.UpdatedAt = now

	// New receipts are checked against the wall clock.
	entry.IsDelayed = in.ReceiptPath != "" && isDelayed(now, in.Date)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertTransaction(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return s.manageChildren(ctx, tx, entry)
	})
	if err != nil {
		return Transaction{}, err
	}
	s.invalidate(ctx, entry.Date.Year())
	return entry, nil
}

// Update re-derives every computed field from the submitted state, keeps
// the children in sync and records an audit entry.
func (s *Service) Update(ctx context.Context, id int64, in EntryInput) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := s.ensureUnlocked(ctx, in.Date); err != nil {
		return Transaction{}, err
	}

	now := s.now()
	var updated Transaction
	var previousYear int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		previousYear = current.Date.Year()

		// Halved rows store the entered amount separately; echoing the
		// stored gross back would halve it a second time, so refuse it.
		if in.IsHusbandPaid && in.Category == CategoryUtilities &&
			current.AmountEntered != current.AmountGross &&
			in.AmountGross == current.AmountGross {
			return shared.Invalid("amount_gross", "must be the originally entered amount")
		}

		updated = s.derive(in)
		updated.ID = current.ID
		updated.CreatedAt = current.CreatedAt
		updated.UpdatedAt = now
		if in.Status == "" {
			updated.Status = current.Status
			updated.DepositDate = current.DepositDate
		}
		if in.ReceiptPath == "" {
			updated.ReceiptPath = current.ReceiptPath
		}

		// Re-check the attachment gap: a fresh file counts from now, an
		// existing one from its original attachment time.
		refTime := now
		if !in.NewReceipt {
			refTime = current.CreatedAt
		}
		updated.IsDelayed = updated.ReceiptPath != "" && isDelayed(refTime, updated.Date)

		if err := tx.UpdateTransaction(ctx, updated); err != nil {
			return err
		}
		if err := s.manageChildren(ctx, tx, updated); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, AuditEntry{
			TransactionID: id,
			Action:        AuditUpdate,
			OldData:       current.Snapshot(),
			NewData:       updated.Snapshot(),
			ChangedBy:     shared.ActorFromContext(ctx),
			ChangedAt:     now,
		})
	})
	if err != nil {
		return Transaction{}, err
	}
	s.invalidate(ctx, previousYear, updated.Date.Year())
	return updated, nil
}

// Delete soft-deletes the entry, cascades to its children and records the
// deletion in the audit log.
func (s *Service) Delete(ctx context.Context, id int64) error {
	now := s.now()
	var year int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		year = current.Date.Year()
		if err := tx.SoftDelete(ctx, id, now); err != nil {
			return err
		}
		if err := tx.SoftDeleteChildren(ctx, id, now); err != nil {
			return err
		}
		return tx.InsertAudit(ctx, AuditEntry{
			TransactionID: id,
			Action:        AuditDelete,
			OldData:       current.Snapshot(),
			ChangedBy:     shared.ActorFromContext(ctx),
			ChangedAt:     now,
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, year)
	return nil
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// Query lists entries matching the filter, excluding soft-deleted rows.
func (s *Service) Query(ctx context.Context, filter QueryFilter) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// AuditLog returns the change history of one entry, newest first.
func (s *Service) AuditLog(ctx context.Context, transactionID int64) ([]AuditEntry, error) {
	return s.repo.ListAuditLog(ctx, transactionID)
}

// SumExpense aggregates expense rows for the apportionment step.
func (s *Service) SumExpense(ctx context.Context, year int, category, subCategory string, excludeTag GeneratedTag) (int64, error) {
	return s.repo.SumExpense(ctx, year, category, subCategory, excludeTag)
}

// ReplaceGenerated removes every generated row of the given tag and year,
// then posts the supplied entries. Running it twice yields the same ledger.
func (s *Service) ReplaceGenerated(ctx context.Context, year int, tag GeneratedTag, entries []GeneratedInput) ([]Transaction, error) {
	if tag == GeneratedNone {
		return nil, errors.New("ledger: generated tag required")
	}
	now := s.now()
	posted := make([]Transaction, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.DeleteGenerated(ctx, year, tag, 0); err != nil {
			return err
		}
		for _, in := range entries {
			if in.Amount <= 0 {
				continue
			}
			entry := in.transaction(now)
			id, err := tx.InsertTransaction(ctx, entry)
			if err != nil {
				return err
			}
			entry.ID = id
			posted = append(posted, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, year)
	return posted, nil
}

// ReplaceAssetDepreciation swaps the single depreciation row of one asset
// for one year. A nil entry only clears the previous row. Unlike the
// closing pipeline path this is reachable per asset over HTTP, so it
// refuses locked years itself.
func (s *Service) ReplaceAssetDepreciation(ctx context.Context, year int, assetID int64, entry *GeneratedInput) (*Transaction, error) {
	if err := s.ensureYearUnlocked(ctx, year); err != nil {
		return nil, err
	}
	now := s.now()
	var posted *Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.DeleteGenerated(ctx, year, GeneratedDepreciation, assetID); err != nil {
			return err
		}
		if entry == nil || entry.Amount <= 0 {
			return nil
		}
		row := entry.transaction(now)
		id, err := tx.InsertTransaction(ctx, row)
		if err != nil {
			return err
		}
		row.ID = id
		posted = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, year)
	return posted, nil
}

// PostGenerated appends synthetic entries without replacement semantics
// (disposal legs are posted once, not re-run). Every entry's year must be
// open; disposal is a regular ledger write, not a closing step.
func (s *Service) PostGenerated(ctx context.Context, entries []GeneratedInput) ([]Transaction, error) {
	years := make([]int, 0, len(entries))
	for _, in := range entries {
		year := in.FiscalYear
		if year == 0 {
			year = in.Date.Year()
		}
		if err := s.ensureYearUnlocked(ctx, year); err != nil {
			return nil, err
		}
		years = append(years, year)
	}
	now := s.now()
	posted := make([]Transaction, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range entries {
			if in.Amount <= 0 {
				continue
			}
			entry := in.transaction(now)
			id, err := tx.InsertTransaction(ctx, entry)
			if err != nil {
				return err
			}
			entry.ID = id
			posted = append(posted, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, years...)
	return posted, nil
}

// RemoveAssetEntries soft-deletes every row generated for an asset; used
// when an asset registration is deleted as a mistake correction.
func (s *Service) RemoveAssetEntries(ctx context.Context, assetID int64) error {
	now := s.now()
	var years []int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		years, err = tx.SoftDeleteByAsset(ctx, assetID, now)
		return err
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, years...)
	return nil
}

// derive applies the posting pipeline in order: fee, settlement status,
// household allocation, account mapping, net amount. The halving always
// starts from the entered amount, so resubmitting an edit never re-halves.
func (s *Service) derive(in EntryInput) Transaction {
	fee := computeFee(in)

	status := StatusSettled
	if in.Type == EntryIncome && isPlatformSource(in.PaymentSource) {
		status = StatusUnsettled
	}
	if in.Status != "" {
		status = in.Status
	}
	depositDate := in.DepositDate
	if status == StatusSettled && depositDate == nil {
		d := in.Date
		depositDate = &d
	}

	entered := in.AmountGross
	gross := entered
	if in.IsHusbandPaid && in.Category == CategoryUtilities {
		gross = (entered + 1) / 2
	}

	debit, credit := mapAccounts(in.Type, in.Category, in.PaymentSource, in.IsHusbandPaid)

	return Transaction{
		Date:          in.Date,
		Type:          in.Type,
		Category:      in.Category,
		SubCategory:   in.SubCategory,
		Description:   in.Description,
		AmountEntered: entered,
		AmountGross:   gross,
		Fee:           fee,
		ShippingFee:   in.ShippingFee,
		AmountNet:     gross - fee - in.ShippingFee,
		PaymentSource: in.PaymentSource,
		IsHusbandPaid: in.IsHusbandPaid,
		PartnerName:   in.PartnerName,
		TaxRate:       taxRateOrDefault(in.TaxRate),
		InvoiceNo:     in.InvoiceNo,
		DebitAccount:  debit,
		CreditAccount: credit,
		Status:        status,
		DepositDate:   depositDate,
		ReceiptPath:   in.ReceiptPath,
	}
}

func taxRateOrDefault(rate int) int {
	if rate == 0 {
		return 10
	}
	return rate
}

func isDelayed(attachedAt, txDate time.Time) bool {
	return attachedAt.After(txDate) && attachedAt.Sub(txDate) > receiptDelayTolerance
}

// manageChildren upserts or removes the derived fee and shipping rows so
// an edited parent never leaves stale splits behind.
func (s *Service) manageChildren(ctx context.Context, tx TxRepository, parent Transaction) error {
	feePartner, feeDescription := feeChildText(parent.PaymentSource, parent.PartnerName, parent.Description)
	if err := s.manageChild(ctx, tx, parent, CategoryCommissionFee, parent.Fee, feePartner, feeDescription, AccountCommissionFee); err != nil {
		return err
	}
	return s.manageChild(ctx, tx, parent, CategoryShipping, parent.ShippingFee, parent.PartnerName, shippingChildText(parent.Description), AccountShipping)
}

func (s *Service) manageChild(ctx context.Context, tx TxRepository, parent Transaction, category string, amount int64, partner, description string, debit Account) error {
	child, err := tx.GetChild(ctx, parent.ID, category)
	exists := err == nil
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if amount <= 0 {
		if exists {
			return tx.DeleteRow(ctx, child.ID)
		}
		return nil
	}

	now := s.now()
	next := Transaction{
		Date:          parent.Date,
		Type:          EntryExpense,
		Category:      category,
		Description:   description,
		AmountEntered: amount,
		AmountGross:   amount,
		AmountNet:     amount,
		PaymentSource: parent.PaymentSource,
		PartnerName:   partner,
		TaxRate:       10,
		DebitAccount:  debit,
		CreditAccount: childCredit(parent.PaymentSource),
		Status:        StatusSettled,
		DepositDate:   &parent.Date,
		ParentID:      parent.ID,
		UpdatedAt:     now,
	}
	if exists {
		next.ID = child.ID
		next.CreatedAt = child.CreatedAt
		return tx.UpdateTransaction(ctx, next)
	}
	next.CreatedAt = now
	_, err = tx.InsertTransaction(ctx, next)
	return err
}
