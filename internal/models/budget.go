package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly   BudgetPeriod = "monthly"
	BudgetPeriodQuarterly BudgetPeriod = "quarterly"
	BudgetPeriodYearly    BudgetPeriod = "yearly"
)

// BudgetStatus classifies how a budget's spending compares to its limit.
type BudgetStatus string

const (
	BudgetStatusOnTrack    BudgetStatus = "on_track"
	BudgetStatusWarning    BudgetStatus = "warning"
	BudgetStatusOverBudget BudgetStatus = "over_budget"
)

// Budget is a spending limit for a category over a fixed date window.
// Spent/remaining/status are derived on read, never stored.
type Budget struct {
	Base
	CategoryID     string       `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount         int64        `gorm:"type:bigint;not null" json:"amount"`
	Period         BudgetPeriod `gorm:"not null" json:"period"`
	StartDate      time.Time    `gorm:"not null" json:"start_date"`
	EndDate        time.Time    `gorm:"not null" json:"end_date"`
	IsActive       bool         `gorm:"default:true" json:"is_active"`
	AlertThreshold float64      `gorm:"not null;default:80" json:"alert_threshold"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// PercentageUsed returns how much of the budget the given spend consumes,
// clamped to [0, 100]. A non-positive budget amount reports 100 by
// convention so that status never divides by zero.
func (b *Budget) PercentageUsed(spent int64) float64 {
	if b.Amount <= 0 {
		return 100
	}
	pct := float64(spent) / float64(b.Amount) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Status classifies the given spend against the budget's amount and alert
// threshold.
func (b *Budget) Status(spent int64) BudgetStatus {
	if spent > b.Amount {
		return BudgetStatusOverBudget
	}
	if b.PercentageUsed(spent) >= b.AlertThreshold {
		return BudgetStatusWarning
	}
	return BudgetStatusOnTrack
}
