package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/models"
	"caudal/internal/pagination"
)

// transactionService handles transaction-related business logic. All writes
// run inside one database transaction together with the ledger recompute of
// every affected account, so a transaction row and its balance effect are
// committed (or rolled back) as a unit.
type transactionService struct {
	db             *gorm.DB
	accountService AccountServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, accountService AccountServicer) TransactionServicer {
	return &transactionService{
		db:             db,
		accountService: accountService,
	}
}

// RecordTransaction writes a new transaction and explicitly recomputes the
// balances of the accounts it touches.
func (s *transactionService) RecordTransaction(input TransactionInput) (*models.Transaction, error) {
	if input.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if input.AccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account ID is required")
	}

	switch input.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		if input.TransferToAccountID != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "only transfers may carry a destination account")
		}
	case models.TransactionTypeTransfer:
		if input.TransferToAccountID == nil || *input.TransferToAccountID == "" {
			return nil, apperrors.ErrMissingTransferTarget
		}
		if *input.TransferToAccountID == input.AccountID {
			return nil, apperrors.ErrSameAccountTransfer
		}
	default:
		return nil, apperrors.ErrInvalidTransactionType
	}

	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	// Ensure the referenced accounts exist before writing anything.
	if _, err := s.accountService.GetAccountByID(input.AccountID); err != nil {
		return nil, err
	}
	if input.TransferToAccountID != nil {
		if _, err := s.accountService.GetAccountByID(*input.TransferToAccountID); err != nil {
			return nil, err
		}
	}

	transaction := &models.Transaction{
		AccountID:           input.AccountID,
		CategoryID:          input.CategoryID,
		Type:                input.Type,
		Amount:              input.Amount,
		Description:         input.Description,
		Date:                input.Date,
		ReferenceNumber:     input.ReferenceNumber,
		Notes:               input.Notes,
		IsReconciled:        input.IsReconciled,
		TransferToAccountID: input.TransferToAccountID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.recalculateAffected(tx, transaction.AccountID, transaction.TransferToAccountID)
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// GetTransactions retrieves a paginated, filtered list of transactions.
func (s *transactionService) GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyTransactionFilters(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.AccountID != nil {
		q = q.Where("account_id = ?", *f.AccountID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.IsReconciled != nil {
		q = q.Where("is_reconciled = ?", *f.IsReconciled)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID.
func (s *transactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction updates an existing transaction. Balances are recomputed
// only when a balance-relevant field (amount, type, account, transfer
// destination) changed, and every account touched before or after the edit
// gets a fresh recompute.
func (s *transactionService) UpdateTransaction(transactionID string, fields TransactionUpdateFields) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return nil, err
	}

	oldAccountID := transaction.AccountID
	oldTransferTo := transaction.TransferToAccountID

	updates := make(map[string]interface{})
	balanceRelevant := false

	if fields.Amount != nil {
		if *fields.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		if *fields.Amount != transaction.Amount {
			updates["amount"] = *fields.Amount
			balanceRelevant = true
		}
	}
	if fields.Type != nil && *fields.Type != transaction.Type {
		switch *fields.Type {
		case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeTransfer:
		default:
			return nil, apperrors.ErrInvalidTransactionType
		}
		updates["type"] = *fields.Type
		balanceRelevant = true
	}
	if fields.AccountID != nil && *fields.AccountID != transaction.AccountID {
		if _, err := s.accountService.GetAccountByID(*fields.AccountID); err != nil {
			return nil, err
		}
		updates["account_id"] = *fields.AccountID
		balanceRelevant = true
	}
	if fields.TransferToAccountID != nil && *fields.TransferToAccountID != "" {
		if oldTransferTo == nil || *fields.TransferToAccountID != *oldTransferTo {
			if _, err := s.accountService.GetAccountByID(*fields.TransferToAccountID); err != nil {
				return nil, err
			}
			updates["transfer_to_account_id"] = *fields.TransferToAccountID
			balanceRelevant = true
		}
	}
	if fields.CategoryID != nil {
		updates["category_id"] = *fields.CategoryID
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Date != nil {
		updates["date"] = *fields.Date
	}
	if fields.ReferenceNumber != nil {
		updates["reference_number"] = *fields.ReferenceNumber
	}
	if fields.Notes != nil {
		updates["notes"] = *fields.Notes
	}
	if fields.IsReconciled != nil {
		updates["is_reconciled"] = *fields.IsReconciled
	}

	// Re-check the type/destination pairing against the post-update state so
	// an edit cannot strand a transfer without a destination or leave a stale
	// destination on an income or expense row.
	newType := transaction.Type
	if fields.Type != nil {
		newType = *fields.Type
	}
	newAccountID := transaction.AccountID
	if fields.AccountID != nil {
		newAccountID = *fields.AccountID
	}
	newTransferTo := oldTransferTo
	if fields.TransferToAccountID != nil {
		newTransferTo = fields.TransferToAccountID
	}

	if newType == models.TransactionTypeTransfer {
		if newTransferTo == nil || *newTransferTo == "" {
			return nil, apperrors.ErrMissingTransferTarget
		}
		if *newTransferTo == newAccountID {
			return nil, apperrors.ErrSameAccountTransfer
		}
	} else {
		if fields.TransferToAccountID != nil && *fields.TransferToAccountID != "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "only transfers may carry a destination account")
		}
		if oldTransferTo != nil {
			updates["transfer_to_account_id"] = nil
			balanceRelevant = true
		}
	}

	if len(updates) == 0 {
		return transaction, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(transaction).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("id = ?", transactionID).First(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if !balanceRelevant {
			return nil
		}

		for _, accountID := range affectedAccounts(
			oldAccountID, transaction.AccountID, oldTransferTo, transaction.TransferToAccountID,
		) {
			if err := s.accountService.RecalculateBalance(tx, accountID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction and recomputes the balances
// of the accounts it touched, which restores them to what they would be had
// the transaction never existed.
func (s *transactionService) DeleteTransaction(transactionID string) error {
	transaction, err := s.GetTransactionByID(transactionID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.recalculateAffected(tx, transaction.AccountID, transaction.TransferToAccountID)
	})
}

// recalculateAffected recomputes the source account and, for transfers, the
// destination account.
func (s *transactionService) recalculateAffected(tx *gorm.DB, accountID string, transferTo *string) error {
	if err := s.accountService.RecalculateBalance(tx, accountID); err != nil {
		return err
	}
	if transferTo != nil && *transferTo != accountID {
		if err := s.accountService.RecalculateBalance(tx, *transferTo); err != nil {
			return err
		}
	}
	return nil
}

// affectedAccounts returns the distinct non-empty account IDs among the
// given values, preserving order.
func affectedAccounts(ids ...interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range ids {
		var id string
		switch x := v.(type) {
		case string:
			id = x
		case *string:
			if x != nil {
				id = *x
			}
		}
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
