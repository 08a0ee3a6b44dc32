package services

import (
	"testing"
	"time"

	"caudal/internal/models"
	"caudal/internal/testutil"
)

func TestCreateBudget(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now()
		budget, err := svc.CreateBudget(category.ID, 500000, models.BudgetPeriodMonthly, start, start.AddDate(0, 1, 0), 75)
		testutil.AssertNoError(t, err)

		if budget.AlertThreshold != 75 {
			t.Errorf("expected threshold 75, got %v", budget.AlertThreshold)
		}
		if !budget.IsActive {
			t.Error("expected new budget to be active")
		}
	})

	t.Run("zero_threshold_defaults_to_80", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now()
		budget, err := svc.CreateBudget(category.ID, 500000, models.BudgetPeriodMonthly, start, start.AddDate(0, 1, 0), 0)
		testutil.AssertNoError(t, err)

		if budget.AlertThreshold != 80 {
			t.Errorf("expected default threshold 80, got %v", budget.AlertThreshold)
		}
	})

	t.Run("start_must_precede_end", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now()
		_, err := svc.CreateBudget(category.ID, 500000, models.BudgetPeriodMonthly, start, start, 80)
		testutil.AssertAppError(t, err, "INVALID_BUDGET_DATES")
	})

	t.Run("non_positive_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now()
		_, err := svc.CreateBudget(category.ID, 0, models.BudgetPeriodMonthly, start, start.AddDate(0, 1, 0), 80)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("missing_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))

		start := time.Now()
		_, err := svc.CreateBudget("00000000-0000-0000-0000-000000000000", 500000, models.BudgetPeriodMonthly, start, start.AddDate(0, 1, 0), 80)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestUpdateBudget(t *testing.T) {
	t.Run("window_validated_against_combined_dates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now()
		budget := testutil.CreateTestBudget(t, db, category.ID, 500000, start, start.AddDate(0, 1, 0))

		badEnd := start.AddDate(0, 0, -1)
		_, err := svc.UpdateBudget(budget.ID, nil, nil, nil, &badEnd, nil, nil)
		testutil.AssertAppError(t, err, "INVALID_BUDGET_DATES")
	})

	t.Run("threshold_out_of_range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now()
		budget := testutil.CreateTestBudget(t, db, category.ID, 500000, start, start.AddDate(0, 1, 0))

		bad := 150.0
		_, err := svc.UpdateBudget(budget.ID, nil, nil, nil, nil, nil, &bad)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetBudgetProgress(t *testing.T) {
	t.Run("sums_window_expenses_in_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		account := testutil.CreateTestAccount(t, db)
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)
		otherCategory := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now().AddDate(0, 0, -15)
		end := time.Now().AddDate(0, 0, 15)
		budget := testutil.CreateTestBudget(t, db, category.ID, 100000, start, end)

		inWindow := func(categoryID string, txType models.TransactionType, amount int64, date time.Time) {
			tx := &models.Transaction{
				AccountID:  account.ID,
				CategoryID: &categoryID,
				Type:       txType,
				Amount:     amount,
				Date:       date,
			}
			testutil.AssertNoError(t, db.Create(tx).Error)
		}

		inWindow(category.ID, models.TransactionTypeExpense, 30000, time.Now())
		inWindow(category.ID, models.TransactionTypeExpense, 20000, time.Now().AddDate(0, 0, -5))
		// Outside the window, wrong category, and wrong type: all ignored.
		inWindow(category.ID, models.TransactionTypeExpense, 99999, start.AddDate(0, 0, -10))
		inWindow(otherCategory.ID, models.TransactionTypeExpense, 99999, time.Now())
		inWindow(category.ID, models.TransactionTypeIncome, 99999, time.Now())

		progress, err := svc.GetBudgetProgress(budget.ID)
		testutil.AssertNoError(t, err)

		if progress.Spent != 50000 {
			t.Errorf("expected spent 50000, got %d", progress.Spent)
		}
		if progress.Remaining != 50000 {
			t.Errorf("expected remaining 50000, got %d", progress.Remaining)
		}
		if progress.Percentage != 50 {
			t.Errorf("expected 50 percent used, got %v", progress.Percentage)
		}
		if progress.Status != models.BudgetStatusOnTrack {
			t.Errorf("expected on_track, got %s", progress.Status)
		}
	})

	t.Run("overspend_reports_over_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))
		account := testutil.CreateTestAccount(t, db)
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		start := time.Now().AddDate(0, 0, -1)
		end := time.Now().AddDate(0, 0, 1)
		budget := testutil.CreateTestBudget(t, db, category.ID, 10000, start, end)

		tx := &models.Transaction{
			AccountID:  account.ID,
			CategoryID: &category.ID,
			Type:       models.TransactionTypeExpense,
			Amount:     25000,
			Date:       time.Now(),
		}
		testutil.AssertNoError(t, db.Create(tx).Error)

		progress, err := svc.GetBudgetProgress(budget.ID)
		testutil.AssertNoError(t, err)

		if progress.Status != models.BudgetStatusOverBudget {
			t.Errorf("expected over_budget, got %s", progress.Status)
		}
		if progress.Remaining != -15000 {
			t.Errorf("expected remaining -15000, got %d", progress.Remaining)
		}
		if progress.Percentage != 100 {
			t.Errorf("expected percentage clamped to 100, got %v", progress.Percentage)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db, NewCategoryService(db))

		_, err := svc.GetBudgetProgress("00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}
