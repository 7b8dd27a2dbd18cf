package records

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want decimal.Decimal
	}{
		{"float", 42.5, decimal.NewFromFloat(42.5)},
		{"int", 7, decimal.NewFromInt(7)},
		{"int64", int64(9), decimal.NewFromInt(9)},
		{"numeric string", " 12.30 ", decimal.RequireFromString("12.3")},
		{"json number", json.Number("3.25"), decimal.RequireFromString("3.25")},
		{"decimal", decimal.NewFromInt(5), decimal.NewFromInt(5)},
		{"empty string", "", decimal.Zero},
		{"garbage", "abc", decimal.Zero},
		{"nil", nil, decimal.Zero},
		{"bool", true, decimal.Zero},
		{"NaN", math.NaN(), decimal.Zero},
		{"Inf", math.Inf(1), decimal.Zero},
		{"huge exponent", "1e10000000", decimal.Zero},
		{"enormous exponent", "1e1000000000", decimal.Zero},
		{"vanishing exponent", "1e-1000000000", decimal.Zero},
		{"huge float", 1e300, decimal.Zero},
		{"largest accepted", "999999999999999999.99", decimal.RequireFromString("999999999999999999.99")},
		{"too large", "1000000000000000000", decimal.Zero},
		{"long fraction", "1.12345678901234567890123", decimal.RequireFromString("1.123456789012345678")},
		{"scientific", "1.5e3", decimal.NewFromInt(1500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.in)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		ok   bool
	}{
		{"time", want, true},
		{"rfc3339", "2025-03-14T00:00:00Z", true},
		{"rfc3339 nano", "2025-03-14T00:00:00.000Z", true},
		{"local layout", "2025-03-14T00:00:00", true},
		{"date only", "2025-03-14", true},
		{"unix millis", want.UnixMilli(), true},
		{"unix millis float", float64(want.UnixMilli()), true},
		{"garbage", "yesterday", false},
		{"nil", nil, false},
		{"zero time", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(want), "got %s", got)
				assert.Equal(t, time.UTC, got.Location())
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

func TestParseDate_ConvertsOffsetToUTC(t *testing.T) {
	got, ok := ParseDate("2025-03-31T23:30:00-02:00")
	assert.True(t, ok)
	assert.Equal(t, time.April, got.Month())
	assert.Equal(t, 1, got.Day())
}

func TestFromFields(t *testing.T) {
	rec := FromFields(map[string]any{
		"RowKey":   "ignored",
		"Amount":   "19.99",
		"Type":     "expense",
		"Category": "Groceries",
		"Date":     "2025-01-05T10:00:00Z",
		"ID":       "txn-1",
	})

	assert.True(t, rec.Amount.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, models.TransactionTypeExpense, rec.Type)
	assert.Equal(t, "Groceries", rec.Category)
	assert.Equal(t, "txn-1", rec.ID)
	assert.Equal(t, time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC), rec.Date)
}

func TestFromFields_MissingValues(t *testing.T) {
	rec := FromFields(map[string]any{"type": 12})

	assert.True(t, rec.Amount.IsZero())
	assert.Equal(t, models.TransactionType(""), rec.Type)
	assert.Empty(t, rec.Category)
	assert.True(t, rec.Date.IsZero())
}
