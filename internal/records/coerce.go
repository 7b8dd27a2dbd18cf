// Package records converts raw stored transaction values into
// models.TransactionRecord. It is the only place where store-specific
// amount and date representations are interpreted.
package records

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// maxAmountMagnitude bounds amounts to below 10^18 and fractions to 18 places.
const maxAmountMagnitude = 18

// ParseAmount coerces a stored amount into a decimal. Values that are not
// numeric, not finite, or of magnitude 10^18 or more become zero.
func ParseAmount(v any) decimal.Decimal {
	return bounded(parseAmount(v))
}

func parseAmount(v any) decimal.Decimal {
	switch a := v.(type) {
	case decimal.Decimal:
		return a
	case *decimal.Decimal:
		if a == nil {
			return decimal.Zero
		}
		return *a
	case float64:
		return fromFloat(a)
	case float32:
		return fromFloat(float64(a))
	case int:
		return decimal.NewFromInt(int64(a))
	case int32:
		return decimal.NewFromInt32(a)
	case int64:
		return decimal.NewFromInt(a)
	case json.Number:
		return parseAmount(a.String())
	case string:
		s := strings.TrimSpace(a)
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// bounded keeps exponent arithmetic on the decimal proportional to its
// written size, so rounding later never expands it.
func bounded(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	magnitude := int64(d.NumDigits()) + int64(d.Exponent())
	switch {
	case magnitude > maxAmountMagnitude, magnitude <= -maxAmountMagnitude:
		return decimal.Zero
	case d.Exponent() < -maxAmountMagnitude:
		return d.Truncate(maxAmountMagnitude)
	}
	return d
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// ParseDate coerces a stored date into a UTC time. Numbers are treated as
// Unix milliseconds. The boolean is false when the value could not be parsed.
func ParseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		if d.IsZero() {
			return time.Time{}, false
		}
		return d.UTC(), true
	case *time.Time:
		if d == nil || d.IsZero() {
			return time.Time{}, false
		}
		return d.UTC(), true
	case int64:
		return time.UnixMilli(d).UTC(), true
	case int:
		return time.UnixMilli(int64(d)).UTC(), true
	case float64:
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(d)).UTC(), true
	case json.Number:
		if ms, err := d.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		return time.Time{}, false
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// FromFields builds a record from a loosely typed field map such as a
// decoded table entity or a CSV row. Keys are matched case-insensitively.
func FromFields(fields map[string]any) models.TransactionRecord {
	rec := models.TransactionRecord{
		Amount: ParseAmount(lookup(fields, "amount")),
	}

	if s, ok := lookup(fields, "type").(string); ok {
		rec.Type = models.TransactionType(strings.TrimSpace(s))
	}
	if s, ok := lookup(fields, "category").(string); ok {
		rec.Category = s
	}
	if s, ok := lookup(fields, "id").(string); ok {
		rec.ID = s
	}
	if t, ok := ParseDate(lookup(fields, "date")); ok {
		rec.Date = t
	}

	return rec
}

func lookup(fields map[string]any, key string) any {
	if v, ok := fields[key]; ok {
		return v
	}
	for k, v := range fields {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}
