package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction represents a financial transaction. Amounts are positive
// minor units (cents); the sign of the balance effect comes from Type.
// Transfers debit the source account and credit TransferToAccountID.
type Transaction struct {
	Base
	AccountID           string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID          *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Amount              int64           `gorm:"type:bigint;not null" json:"amount"`
	Description         string          `gorm:"not null" json:"description"`
	Date                time.Time       `gorm:"not null;index" json:"date"`
	Type                TransactionType `gorm:"not null;index" json:"type"`
	ReferenceNumber     string          `json:"reference_number,omitempty"`
	Notes               string          `json:"notes,omitempty"`
	IsReconciled        bool            `gorm:"default:false" json:"is_reconciled"`
	TransferToAccountID *string         `gorm:"type:uuid;index" json:"transfer_to_account_id,omitempty"`

	// Relationships
	Account           Account   `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	TransferToAccount *Account  `gorm:"foreignKey:TransferToAccountID" json:"transfer_to_account,omitempty"`
	Category          *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// BalanceEffect returns the signed contribution of this transaction to its
// source account's balance.
func (t *Transaction) BalanceEffect() int64 {
	switch t.Type {
	case TransactionTypeIncome:
		return t.Amount
	case TransactionTypeExpense, TransactionTypeTransfer:
		return -t.Amount
	}
	return 0
}

// IsTransfer reports whether the transaction moves money between accounts.
func (t *Transaction) IsTransfer() bool {
	return t.Type == TransactionTypeTransfer
}
