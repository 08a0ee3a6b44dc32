package models

import "testing"

func TestPercentageUsed(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		spent  int64
		want   float64
	}{
		{"half_spent", 100000, 50000, 50},
		{"nothing_spent", 100000, 0, 0},
		{"exactly_spent", 100000, 100000, 100},
		{"overspent_clamps_to_100", 100000, 250000, 100},
		{"negative_spend_clamps_to_0", 100000, -500, 0},
		{"zero_amount_reports_100", 0, 0, 100},
		{"negative_amount_reports_100", -100, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Budget{Amount: tt.amount}
			if got := b.PercentageUsed(tt.spent); got != tt.want {
				t.Errorf("PercentageUsed(%d) = %v, want %v", tt.spent, got, tt.want)
			}
		})
	}
}

func TestBudgetStatus(t *testing.T) {
	tests := []struct {
		name      string
		amount    int64
		threshold float64
		spent     int64
		want      BudgetStatus
	}{
		{"under_threshold", 100000, 80, 50000, BudgetStatusOnTrack},
		{"at_threshold", 100000, 80, 80000, BudgetStatusWarning},
		{"above_threshold", 100000, 80, 90000, BudgetStatusWarning},
		{"at_limit_is_warning", 100000, 80, 100000, BudgetStatusWarning},
		{"over_limit", 100000, 80, 100001, BudgetStatusOverBudget},
		{"zero_threshold_always_warns", 100000, 0, 0, BudgetStatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Budget{Amount: tt.amount, AlertThreshold: tt.threshold}
			if got := b.Status(tt.spent); got != tt.want {
				t.Errorf("Status(%d) = %v, want %v", tt.spent, got, tt.want)
			}
		})
	}
}
