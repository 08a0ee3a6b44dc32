package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"caudal/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a checking account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, 0)
}

// CreateTestAccountWithBalance creates a checking account with the given
// balance (in minor units).
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, balance int64) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     models.AccountTypeChecking,
		Balance:  balance,
		Currency: "COP",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     fmt.Sprintf("Test Category %d", nextID()),
		Type:     categoryType,
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction of the given type and amount
// (in minor units).
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountID string, txType models.TransactionType, amount int64) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		AccountID: accountID,
		Type:      txType,
		Amount:    amount,
		Date:      time.Now(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestRule creates an active rule with a single description-contains
// condition.
func CreateTestRule(t *testing.T, db *gorm.DB, categoryID, contains string, priority int) *models.TransactionRule {
	t.Helper()

	rule := &models.TransactionRule{
		Name: fmt.Sprintf("Test Rule %d", nextID()),
		Conditions: []models.Condition{
			{Field: models.RuleFieldDescription, Operator: models.RuleOperatorContains, Value: contains},
		},
		CategoryID: categoryID,
		Priority:   priority,
		IsActive:   true,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test rule: %v", err)
	}
	return rule
}

// CreateTestRecurring creates an active monthly recurring series due at the
// given date.
func CreateTestRecurring(t *testing.T, db *gorm.DB, accountID, categoryID string, amount int64, nextDue time.Time) *models.RecurringTransaction {
	t.Helper()

	recurring := &models.RecurringTransaction{
		AccountID:   accountID,
		CategoryID:  categoryID,
		Amount:      amount,
		Description: fmt.Sprintf("Test Recurring %d", nextID()),
		Frequency:   models.FrequencyMonthly,
		NextDueDate: nextDue,
		IsActive:    true,
	}
	if err := db.Create(recurring).Error; err != nil {
		t.Fatalf("failed to create test recurring transaction: %v", err)
	}
	return recurring
}

// CreateTestBudget creates an active monthly budget for the given category
// covering the given window.
func CreateTestBudget(t *testing.T, db *gorm.DB, categoryID string, amount int64, start, end time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		CategoryID:     categoryID,
		Amount:         amount,
		Period:         models.BudgetPeriodMonthly,
		StartDate:      start,
		EndDate:        end,
		AlertThreshold: 80,
		IsActive:       true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}
