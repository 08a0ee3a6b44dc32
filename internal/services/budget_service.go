package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/models"
	"caudal/internal/pagination"
)

// budgetService handles budget-related business logic, including progress
// evaluation against actual spending.
type budgetService struct {
	db              *gorm.DB
	categoryService CategoryServicer
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, categoryService CategoryServicer) BudgetServicer {
	return &budgetService{
		db:              db,
		categoryService: categoryService,
	}
}

// CreateBudget creates a new budget for a category's spending window.
func (s *budgetService) CreateBudget(
	categoryID string,
	amount int64,
	period models.BudgetPeriod,
	startDate, endDate time.Time,
	alertThreshold float64,
) (*models.Budget, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
	}
	if !startDate.Before(endDate) {
		return nil, apperrors.ErrInvalidBudgetDates
	}
	if alertThreshold < 0 || alertThreshold > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
	}
	if alertThreshold == 0 {
		alertThreshold = 80
	}

	if _, err := s.categoryService.GetCategoryByID(categoryID); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		CategoryID:     categoryID,
		Amount:         amount,
		Period:         period,
		StartDate:      startDate,
		EndDate:        endDate,
		AlertThreshold: alertThreshold,
		IsActive:       true,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetBudgets retrieves a paginated list of budgets with optional filters.
func (s *budgetService) GetBudgets(
	page pagination.PageRequest,
	isActive *bool,
	period *models.BudgetPeriod,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{})
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if period != nil {
		base = base.Where("period = ?", *period)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Scopes(pagination.Paginate(page)).
		Order("start_date DESC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID retrieves a budget by ID.
func (s *budgetService) GetBudgetByID(budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Where("id = ?", budgetID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget.
func (s *budgetService) UpdateBudget(
	budgetID string,
	amount *int64,
	period *models.BudgetPeriod,
	startDate, endDate *time.Time,
	isActive *bool,
	alertThreshold *float64,
) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, err
	}

	newStart := budget.StartDate
	newEnd := budget.EndDate
	if startDate != nil {
		newStart = *startDate
	}
	if endDate != nil {
		newEnd = *endDate
	}
	if !newStart.Before(newEnd) {
		return nil, apperrors.ErrInvalidBudgetDates
	}

	updates := make(map[string]interface{})
	if amount != nil {
		if *amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
		}
		updates["amount"] = *amount
	}
	if period != nil {
		updates["period"] = *period
	}
	if startDate != nil {
		updates["start_date"] = *startDate
	}
	if endDate != nil {
		updates["end_date"] = *endDate
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}
	if alertThreshold != nil {
		if *alertThreshold < 0 || *alertThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
		}
		updates["alert_threshold"] = *alertThreshold
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.db.Where("id = ?", budgetID).First(budget).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return budget, nil
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(budgetID string) error {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress derives the budget's spending figures from the expense
// transactions in its category between its start and end dates, inclusive.
// Soft-deleted transactions never count.
func (s *budgetService) GetBudgetProgress(budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, err
	}

	var spent int64
	err = s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("category_id = ? AND type = ? AND date >= ? AND date <= ?",
			budget.CategoryID, models.TransactionTypeExpense, budget.StartDate, budget.EndDate).
		Scan(&spent).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &BudgetProgress{
		BudgetID:   budget.ID,
		Budgeted:   budget.Amount,
		Spent:      spent,
		Remaining:  budget.Amount - spent,
		Percentage: budget.PercentageUsed(spent),
		Status:     budget.Status(spent),
	}, nil
}
