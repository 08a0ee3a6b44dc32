package models

import "time"

// Frequency represents how often a recurring transaction repeats.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// RecurringTransaction is a template that materializes concrete
// transactions on a schedule. Amount is signed: non-negative amounts
// produce income transactions, negative amounts produce expenses.
type RecurringTransaction struct {
	Base
	AccountID       string     `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID      string     `gorm:"type:uuid;not null;index" json:"category_id"`
	Amount          int64      `gorm:"type:bigint;not null" json:"amount"`
	Description     string     `gorm:"not null" json:"description"`
	Frequency       Frequency  `gorm:"not null" json:"frequency"`
	NextDueDate     time.Time  `gorm:"not null;index" json:"next_due_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	AutoProcess     bool       `gorm:"default:false" json:"auto_process"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`

	// Relationships
	Account  Account  `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// PlannedTransaction is one simulated future occurrence of a series.
type PlannedTransaction struct {
	Date        time.Time `json:"date"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
}

// IsDue reports whether the series is due at the given time.
func (r *RecurringTransaction) IsDue(now time.Time) bool {
	return !now.Before(r.NextDueDate)
}

// IsOverdue reports whether the series is past due at the given time.
func (r *RecurringTransaction) IsOverdue(now time.Time) bool {
	return now.After(r.NextDueDate)
}

// CanProcess reports whether the series may be processed at the given
// time: it must be active, due, and not past its end date.
func (r *RecurringTransaction) CanProcess(now time.Time) bool {
	return r.IsActive && r.IsDue(now) && (r.EndDate == nil || !now.After(*r.EndDate))
}

// NextDueAfter returns the due date one frequency step after t. Month
// steps clamp to the last day of shorter months (Jan 31 + 1 month =
// Feb 29 in a leap year). Unrecognized frequencies advance by one month.
func (r *RecurringTransaction) NextDueAfter(t time.Time) time.Time {
	switch r.Frequency {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return addMonthsClamped(t, 1)
	case FrequencyQuarterly:
		return addMonthsClamped(t, 3)
	case FrequencyYearly:
		return addMonthsClamped(t, 12)
	}
	return addMonthsClamped(t, 1)
}

// PreviewNext simulates up to n future occurrences without mutating the
// series, stopping early once a simulated date would pass the end date.
func (r *RecurringTransaction) PreviewNext(n int) []PlannedTransaction {
	planned := make([]PlannedTransaction, 0, n)
	next := r.NextDueDate
	for i := 0; i < n; i++ {
		if r.EndDate != nil && next.After(*r.EndDate) {
			break
		}
		planned = append(planned, PlannedTransaction{
			Date:        next,
			Amount:      r.Amount,
			Description: r.Description,
		})
		next = r.NextDueAfter(next)
	}
	return planned
}

// addMonthsClamped adds n months to t, clamping the day of month to the
// last day of the target month instead of overflowing like AddDate.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, minute, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}
