package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category. Categories form a tree via
// ParentID; cycle prevention is enforced by the category service at write
// time.
type Category struct {
	Base
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	ParentID    *string      `gorm:"type:uuid" json:"parent_id,omitempty"`
	Color       string       `json:"color,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Description string       `json:"description,omitempty"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`

	// Relationships
	Parent       *Category     `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children     []Category    `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
	Budgets      []Budget      `gorm:"foreignKey:CategoryID" json:"budgets,omitempty"`
}
