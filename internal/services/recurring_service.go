package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/logger"
	"caudal/internal/models"
	"caudal/internal/pagination"
)

// recurringService handles recurring-transaction business logic: the
// schedule state machine and the materialization of due occurrences.
type recurringService struct {
	db              *gorm.DB
	accountService  AccountServicer
	categoryService CategoryServicer
}

// NewRecurringService creates a new RecurringServicer.
func NewRecurringService(db *gorm.DB, accountService AccountServicer, categoryService CategoryServicer) RecurringServicer {
	return &recurringService{
		db:              db,
		accountService:  accountService,
		categoryService: categoryService,
	}
}

// CreateRecurring creates a new recurring transaction series.
func (s *recurringService) CreateRecurring(
	accountID, categoryID string,
	amount int64,
	description string,
	frequency models.Frequency,
	nextDueDate time.Time,
	endDate *time.Time,
	autoProcess bool,
) (*models.RecurringTransaction, error) {
	if amount == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot be zero")
	}
	if description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if nextDueDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "next due date is required")
	}
	if endDate != nil && endDate.Before(nextDueDate) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date cannot be before the next due date")
	}

	if _, err := s.accountService.GetAccountByID(accountID); err != nil {
		return nil, err
	}
	if _, err := s.categoryService.GetCategoryByID(categoryID); err != nil {
		return nil, err
	}

	recurring := &models.RecurringTransaction{
		AccountID:   accountID,
		CategoryID:  categoryID,
		Amount:      amount,
		Description: description,
		Frequency:   frequency,
		NextDueDate: nextDueDate,
		EndDate:     endDate,
		IsActive:    true,
		AutoProcess: autoProcess,
	}

	if err := s.db.Create(recurring).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return recurring, nil
}

// GetRecurring retrieves a paginated list of recurring series. With dueOnly
// set, only active series whose next due date has arrived are returned.
func (s *recurringService) GetRecurring(
	page pagination.PageRequest,
	isActive *bool,
	dueOnly bool,
) (*pagination.PageResponse[models.RecurringTransaction], error) {
	page.Defaults()

	base := s.db.Model(&models.RecurringTransaction{})
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if dueOnly {
		base = base.Where("is_active = ? AND next_due_date <= ?", true, time.Now())
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var series []models.RecurringTransaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("next_due_date ASC").
		Find(&series).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(series, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetRecurringByID retrieves a recurring series by ID.
func (s *recurringService) GetRecurringByID(recurringID string) (*models.RecurringTransaction, error) {
	var recurring models.RecurringTransaction
	if err := s.db.Where("id = ?", recurringID).First(&recurring).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecurringNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &recurring, nil
}

// UpdateRecurring updates an existing recurring series.
func (s *recurringService) UpdateRecurring(
	recurringID string,
	amount *int64,
	description *string,
	frequency *models.Frequency,
	nextDueDate, endDate *time.Time,
	isActive, autoProcess *bool,
) (*models.RecurringTransaction, error) {
	recurring, err := s.GetRecurringByID(recurringID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if amount != nil {
		if *amount == 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot be zero")
		}
		updates["amount"] = *amount
	}
	if description != nil && *description != "" {
		updates["description"] = *description
	}
	if frequency != nil {
		updates["frequency"] = *frequency
	}
	if nextDueDate != nil {
		updates["next_due_date"] = *nextDueDate
	}
	if endDate != nil {
		due := recurring.NextDueDate
		if nextDueDate != nil {
			due = *nextDueDate
		}
		if endDate.Before(due) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end date cannot be before the next due date")
		}
		updates["end_date"] = *endDate
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}
	if autoProcess != nil {
		updates["auto_process"] = *autoProcess
	}

	if len(updates) > 0 {
		if err := s.db.Model(recurring).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", recurringID).First(recurring).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return recurring, nil
}

// DeleteRecurring soft-deletes a recurring series. Transactions already
// materialized from it are untouched.
func (s *recurringService) DeleteRecurring(recurringID string) error {
	recurring, err := s.GetRecurringByID(recurringID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(recurring).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Process materializes the next occurrence of the series as a concrete
// transaction, recomputes the account balance, advances the due date by one
// frequency step, and stamps the processing time. A series whose advanced
// due date would pass its end date is deactivated instead of advanced.
func (s *recurringService) Process(recurringID string) (*models.Transaction, error) {
	recurring, err := s.GetRecurringByID(recurringID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !recurring.CanProcess(now) {
		return nil, apperrors.ErrRecurringNotProcessable
	}

	transaction, err := s.processLocked(recurring, now)
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("recurring series processed",
		"recurring_id", recurring.ID,
		"transaction_id", transaction.ID,
		"next_due_date", recurring.NextDueDate,
		"is_active", recurring.IsActive,
	)
	return transaction, nil
}

// processLocked performs the materialization inside one database
// transaction. Callers have already verified CanProcess.
func (s *recurringService) processLocked(recurring *models.RecurringTransaction, now time.Time) (*models.Transaction, error) {
	txType := models.TransactionTypeIncome
	amount := recurring.Amount
	if amount < 0 {
		txType = models.TransactionTypeExpense
		amount = -amount
	}

	transaction := &models.Transaction{
		AccountID:   recurring.AccountID,
		CategoryID:  &recurring.CategoryID,
		Type:        txType,
		Amount:      amount,
		Description: recurring.Description + " (recurring)",
		Date:        now,
		Notes:       fmt.Sprintf("Generated from recurring series %s", recurring.ID),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.accountService.RecalculateBalance(tx, recurring.AccountID); err != nil {
			return err
		}

		next := recurring.NextDueAfter(recurring.NextDueDate)
		updates := map[string]interface{}{
			"next_due_date":     next,
			"last_processed_at": now,
		}
		if recurring.EndDate != nil && next.After(*recurring.EndDate) {
			updates["is_active"] = false
		}
		if err := tx.Model(recurring).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return tx.Where("id = ?", recurring.ID).First(recurring).Error
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// Preview simulates the next occurrences of the series without writing
// anything.
func (s *recurringService) Preview(recurringID string, count int) ([]models.PlannedTransaction, error) {
	recurring, err := s.GetRecurringByID(recurringID)
	if err != nil {
		return nil, err
	}

	if count <= 0 {
		count = 5
	}
	if count > 60 {
		count = 60
	}

	return recurring.PreviewNext(count), nil
}

// ProcessDueAutoRecurring processes every active, due series that has
// auto-processing enabled. One failing series does not stop the sweep.
func (s *recurringService) ProcessDueAutoRecurring() (*SweepSummary, error) {
	now := time.Now()

	var due []models.RecurringTransaction
	if err := s.db.
		Where("is_active = ? AND auto_process = ? AND next_due_date <= ?", true, true, now).
		Order("next_due_date ASC").
		Find(&due).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &SweepSummary{}
	for i := range due {
		recurring := &due[i]
		if !recurring.CanProcess(now) {
			// Due but past the end date: retire the series.
			if err := s.db.Model(recurring).Update("is_active", false).Error; err != nil {
				summary.Failed = append(summary.Failed, recurring.ID)
				continue
			}
			summary.Deactivated++
			continue
		}

		if _, err := s.processLocked(recurring, now); err != nil {
			logger.Get().Errorw("recurring sweep: series failed",
				"recurring_id", recurring.ID,
				"error", err.Error(),
			)
			summary.Failed = append(summary.Failed, recurring.ID)
			continue
		}
		summary.Processed++
		if !recurring.IsActive {
			summary.Deactivated++
		}
	}

	logger.Get().Infow("recurring sweep finished",
		"processed", summary.Processed,
		"deactivated", summary.Deactivated,
		"failed", len(summary.Failed),
	)
	return summary, nil
}
