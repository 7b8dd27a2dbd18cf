package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction record.
type TransactionType string

const (
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeTransfer TransactionType = "transfer"
)

// TransactionRecord is a single transaction as read from a record store.
// A zero Date means the stored value could not be parsed.
type TransactionRecord struct {
	ID       string          `json:"id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Type     TransactionType `json:"type"`
	Category string          `json:"category,omitempty"`
	Date     time.Time       `json:"date"`
}

// IsExpense reports whether the record is an expense with a positive amount.
func (t TransactionRecord) IsExpense() bool {
	return t.Type == TransactionTypeExpense && t.Amount.IsPositive()
}
