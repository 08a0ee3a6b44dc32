package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/logger"
	"caudal/internal/models"
	"caudal/internal/pagination"
)

// accountService handles account-related business logic and owns the
// balance ledger.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a new account. A non-zero opening balance is
// materialized as an "Opening balance" income transaction so the cached
// balance stays derivable from the transaction set alone.
func (s *accountService) CreateAccount(
	name string,
	accountType models.AccountType,
	openingBalance int64,
	currency, description, accountNumber string,
) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if openingBalance < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "opening balance cannot be negative")
	}

	if currency == "" {
		currency = "COP" // Default currency
	}

	account := &models.Account{
		Name:          name,
		Type:          accountType,
		Balance:       openingBalance,
		Currency:      currency,
		Description:   description,
		AccountNumber: accountNumber,
		IsActive:      true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if openingBalance > 0 {
			opening := &models.Transaction{
				AccountID:   account.ID,
				Type:        models.TransactionTypeIncome,
				Amount:      openingBalance,
				Description: "Opening balance",
				Date:        time.Now(),
			}
			if err := tx.Create(opening).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccounts retrieves a paginated list of accounts with optional filters.
func (s *accountService) GetAccounts(
	page pagination.PageRequest,
	accountType *models.AccountType,
	isActive *bool,
) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{})
	if accountType != nil {
		base = base.Where("type = ?", *accountType)
	}
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID.
func (s *accountService) GetAccountByID(accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an existing account. Balance is never set directly;
// it only changes through the ledger recompute.
func (s *accountService) UpdateAccount(accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Currency != nil && *fields.Currency != "" {
		updates["currency"] = *fields.Currency
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}
	if fields.AccountNumber != nil {
		updates["account_number"] = *fields.AccountNumber
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// DeleteAccount soft-deletes an account.
func (s *accountService) DeleteAccount(accountID string) error {
	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(account).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RecalculateBalance recomputes the account's balance from scratch: income
// adds, expenses and outgoing transfers subtract, incoming transfers add.
// Both legs of a transfer use the same full-recompute strategy, so repeated
// saves and deletions can never double-count.
//
// A missing account is a soft failure: it is logged and skipped so a
// dangling reference cannot corrupt balances or abort the caller's write.
func (s *accountService) RecalculateBalance(tx *gorm.DB, accountID string) error {
	var account models.Account
	if err := tx.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Get().Warnw("balance recompute skipped: account not found",
				"account_id", accountID,
			)
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var balance int64
	err := tx.Model(&models.Transaction{}).
		Select(`COALESCE(SUM(CASE
			WHEN account_id = ? AND type = 'income' THEN amount
			WHEN account_id = ? AND type IN ('expense', 'transfer') THEN -amount
			WHEN transfer_to_account_id = ? AND type = 'transfer' THEN amount
			ELSE 0 END), 0)`, accountID, accountID, accountID).
		Where("account_id = ? OR transfer_to_account_id = ?", accountID, accountID).
		Scan(&balance).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Model(&account).Update("balance", balance).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
