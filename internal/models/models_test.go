package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCategoryOrDefault(t *testing.T) {
	if got := CategoryOrDefault(""); got != CategoryOther {
		t.Errorf("Expected %q for empty category, got %q", CategoryOther, got)
	}
	if got := CategoryOrDefault("Groceries"); got != "Groceries" {
		t.Errorf("Expected 'Groceries', got %q", got)
	}
}

func TestTransactionRecord_IsExpense(t *testing.T) {
	tests := []struct {
		name string
		rec  TransactionRecord
		want bool
	}{
		{"positive expense", TransactionRecord{Type: TransactionTypeExpense, Amount: decimal.NewFromInt(10)}, true},
		{"zero expense", TransactionRecord{Type: TransactionTypeExpense, Amount: decimal.Zero}, false},
		{"negative expense", TransactionRecord{Type: TransactionTypeExpense, Amount: decimal.NewFromInt(-5)}, false},
		{"income", TransactionRecord{Type: TransactionTypeIncome, Amount: decimal.NewFromInt(10)}, false},
		{"unknown type", TransactionRecord{Type: "Expense", Amount: decimal.NewFromInt(10)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.IsExpense(); got != tt.want {
				t.Errorf("IsExpense() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyticsSummary_HasInsight(t *testing.T) {
	s := AnalyticsSummary{Insights: []Insight{{Type: InsightSpike}}}
	if !s.HasInsight(InsightSpike) {
		t.Error("Expected spike insight to be found")
	}
	if s.HasInsight(InsightVolatility) {
		t.Error("Did not expect volatility insight")
	}
}

func TestNewRecomputeMessage(t *testing.T) {
	a := NewRecomputeMessage("user-1", ReasonOnDemand)
	b := NewRecomputeMessage("user-1", ReasonOnDemand)

	if a.UserID != "user-1" || a.Reason != ReasonOnDemand {
		t.Errorf("Unexpected message fields: %+v", a)
	}
	if a.RequestID == "" || a.RequestID == b.RequestID {
		t.Errorf("Expected distinct non-empty request IDs, got %q and %q", a.RequestID, b.RequestID)
	}
	if a.RequestedAt.IsZero() {
		t.Error("Expected RequestedAt to be set")
	}
}
