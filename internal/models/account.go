package models

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account represents a financial account in the system.
// Balance is a cache of the signed sum of the account's non-deleted
// transactions; it is recomputed by the account service, never adjusted
// by deltas.
type Account struct {
	Base
	Name          string      `gorm:"not null" json:"name"`
	Type          AccountType `gorm:"not null" json:"type"`
	Balance       int64       `gorm:"not null;default:0" json:"balance"`
	Currency      string      `gorm:"not null;default:'COP'" json:"currency"`
	IsActive      bool        `gorm:"default:true" json:"is_active"`
	Description   string      `json:"description,omitempty"`
	AccountNumber string      `json:"-"`

	// Relationships
	Transactions          []Transaction          `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
	RecurringTransactions []RecurringTransaction `gorm:"foreignKey:AccountID" json:"recurring_transactions,omitempty"`
}

// MaskedAccountNumber returns the account number with all but the last
// four characters hidden, or an empty string when none is set.
func (a *Account) MaskedAccountNumber() string {
	if a.AccountNumber == "" {
		return ""
	}
	n := a.AccountNumber
	if len(n) <= 4 {
		return "******" + n
	}
	return "******" + n[len(n)-4:]
}
