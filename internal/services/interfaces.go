package services

import (
	"io"
	"time"

	"gorm.io/gorm"

	"caudal/internal/models"
	"caudal/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AccountUpdateFields holds optional fields for updating an account.
// Nil pointers leave the corresponding column untouched.
type AccountUpdateFields struct {
	Name          *string
	Description   *string
	Currency      *string
	IsActive      *bool
	AccountNumber *string
}

// AccountServicer defines the contract for account-related business logic,
// including the balance ledger.
type AccountServicer interface {
	CreateAccount(name string, accountType models.AccountType, openingBalance int64, currency, description, accountNumber string) (*models.Account, error)
	GetAccounts(page pagination.PageRequest, accountType *models.AccountType, isActive *bool) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(accountID string) (*models.Account, error)
	UpdateAccount(accountID string, fields AccountUpdateFields) (*models.Account, error)
	DeleteAccount(accountID string) error

	// RecalculateBalance recomputes the account's cached balance as a pure
	// function of its non-deleted transactions, including incoming transfer
	// legs. A missing account is logged and skipped, never an error.
	RecalculateBalance(tx *gorm.DB, accountID string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name string, categoryType models.CategoryType, description, icon, color string, parentID *string) (*models.Category, error)
	GetCategories(page pagination.PageRequest, categoryType *models.CategoryType, rootOnly bool) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(categoryID string) (*models.Category, error)
	GetCategoryPath(categoryID string) ([]models.Category, error)
	UpdateCategory(categoryID string, name, description, icon, color string, parentID *string) (*models.Category, error)
	DeleteCategory(categoryID string) error
}

// TransactionInput holds the fields needed to record a new transaction.
type TransactionInput struct {
	AccountID           string
	CategoryID          *string
	Type                models.TransactionType
	Amount              int64
	Description         string
	Date                time.Time
	ReferenceNumber     string
	Notes               string
	IsReconciled        bool
	TransferToAccountID *string
}

// TransactionUpdateFields holds optional fields for updating a transaction.
type TransactionUpdateFields struct {
	AccountID           *string
	CategoryID          *string
	Type                *models.TransactionType
	Amount              *int64
	Description         *string
	Date                *time.Time
	ReferenceNumber     *string
	Notes               *string
	IsReconciled        *bool
	TransferToAccountID *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	AccountID    *string
	CategoryID   *string
	Type         *models.TransactionType
	FromDate     *time.Time
	ToDate       *time.Time
	MinAmount    *int64
	MaxAmount    *int64
	IsReconciled *bool
}

// TransactionServicer defines the contract for transaction-related business
// logic. Every write goes through here so the balance ledger runs as an
// explicit service call, not a persistence hook.
type TransactionServicer interface {
	RecordTransaction(input TransactionInput) (*models.Transaction, error)
	GetTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	UpdateTransaction(transactionID string, fields TransactionUpdateFields) (*models.Transaction, error)
	DeleteTransaction(transactionID string) error
}

// RuleTestResult summarizes a dry run of one rule against recent transactions.
// MatchRate is a percentage between 0 and 100.
type RuleTestResult struct {
	Matches    []models.Transaction `json:"matches"`
	NonMatches []models.Transaction `json:"non_matches"`
	MatchRate  float64              `json:"match_rate"`
}

// RuleServicer defines the contract for transaction-rule business logic,
// including the first-match-wins application engine.
type RuleServicer interface {
	CreateRule(name string, conditions []models.Condition, categoryID string, priority int) (*models.TransactionRule, error)
	GetRules(page pagination.PageRequest, isActive *bool) (*pagination.PageResponse[models.TransactionRule], error)
	GetRuleByID(ruleID string) (*models.TransactionRule, error)
	UpdateRule(ruleID string, name *string, conditions []models.Condition, categoryID *string, priority *int, isActive *bool) (*models.TransactionRule, error)
	DeleteRule(ruleID string) error

	// ApplyRules applies the highest-priority matching active rule to the
	// transaction, recategorizing it and incrementing the rule's match
	// counter. Returns nil when no rule matches.
	ApplyRules(transactionID string) (*models.TransactionRule, error)
	// ApplyRulesToAll runs ApplyRules over every non-deleted transaction and
	// returns how many were recategorized.
	ApplyRulesToAll() (int, error)
	TestRule(ruleID string, limit int) (*RuleTestResult, error)
}

// SweepSummary reports the outcome of a recurring auto-process sweep.
type SweepSummary struct {
	Processed   int      `json:"processed"`
	Deactivated int      `json:"deactivated"`
	Failed      []string `json:"failed,omitempty"`
}

// RecurringServicer defines the contract for recurring-transaction business
// logic: the scheduler state machine and its materialization side effects.
type RecurringServicer interface {
	CreateRecurring(accountID, categoryID string, amount int64, description string, frequency models.Frequency, nextDueDate time.Time, endDate *time.Time, autoProcess bool) (*models.RecurringTransaction, error)
	GetRecurring(page pagination.PageRequest, isActive *bool, dueOnly bool) (*pagination.PageResponse[models.RecurringTransaction], error)
	GetRecurringByID(recurringID string) (*models.RecurringTransaction, error)
	UpdateRecurring(recurringID string, amount *int64, description *string, frequency *models.Frequency, nextDueDate, endDate *time.Time, isActive, autoProcess *bool) (*models.RecurringTransaction, error)
	DeleteRecurring(recurringID string) error

	// Process materializes the next occurrence of the series as a concrete
	// transaction and advances (or deactivates) the series. Rejected with
	// ErrRecurringNotProcessable when CanProcess is false.
	Process(recurringID string) (*models.Transaction, error)
	Preview(recurringID string, count int) ([]models.PlannedTransaction, error)
	// ProcessDueAutoRecurring processes every active, due series with
	// auto_process enabled. Intended for the cron sweep.
	ProcessDueAutoRecurring() (*SweepSummary, error)
}

// BudgetProgress contains derived spending data for a budget's window.
type BudgetProgress struct {
	BudgetID   string              `json:"budget_id"`
	Budgeted   int64               `json:"budgeted"`
	Spent      int64               `json:"spent"`
	Remaining  int64               `json:"remaining"`
	Percentage float64             `json:"percentage"`
	Status     models.BudgetStatus `json:"status"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(categoryID string, amount int64, period models.BudgetPeriod, startDate, endDate time.Time, alertThreshold float64) (*models.Budget, error)
	GetBudgets(page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(budgetID string) (*models.Budget, error)
	UpdateBudget(budgetID string, amount *int64, period *models.BudgetPeriod, startDate, endDate *time.Time, isActive *bool, alertThreshold *float64) (*models.Budget, error)
	DeleteBudget(budgetID string) error
	GetBudgetProgress(budgetID string) (*BudgetProgress, error)
}

// ImportSummary reports the outcome of one CSV import run.
type ImportSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// ImportServicer defines the contract for CSV imports. Rows are upserted by
// each entity's natural key; row-level failures are collected rather than
// aborting the run.
type ImportServicer interface {
	ImportAccounts(r io.Reader) (*ImportSummary, error)
	ImportCategories(r io.Reader) (*ImportSummary, error)
	ImportTransactions(r io.Reader) (*ImportSummary, error)
	ImportRecurring(r io.Reader) (*ImportSummary, error)
	ImportBudgets(r io.Reader) (*ImportSummary, error)
	ImportRules(r io.Reader) (*ImportSummary, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
