// Package analytics turns a user's transaction records into a monthly
// spending summary: totals for a trailing window, a linear trend, a seasonal
// adjustment, a next-month forecast and a handful of insights.
//
// Compute is pure. It never returns an error: malformed records are dropped
// and every statistic has a defined value for empty input.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/shopspring/decimal"
)

// Compute builds the summary for the window ending at now's month. A zero now
// means the current time.
func Compute(now time.Time, transactions []models.TransactionRecord) models.AnalyticsSummary {
	if now.IsZero() {
		now = time.Now()
	}
	return compute(NewWindow(now), transactions)
}

func compute(w Window, transactions []models.TransactionRecord) models.AnalyticsSummary {
	agg := aggregate(w, transactions)

	totals := agg.floatTotals()
	slope, intercept := linearRegression(totals)
	avg := mean(totals)

	trendPercent := 0.0
	if avg != 0 {
		trendPercent = slope / avg * 100
	}

	seasonalFactor := 1.0
	if avg != 0 {
		seasonalFactor = totals[seasonalIndex(w)] / avg
	}

	prediction := intercept + slope*float64(w.Len())
	forecast := math.Max(0, prediction*seasonalFactor)

	monthly := make([]models.MonthlyTotal, w.Len())
	for i, key := range w.Keys() {
		monthly[i] = models.MonthlyTotal{
			Month: key,
			Value: agg.totals[i].Round(2),
		}
	}

	return models.AnalyticsSummary{
		WindowMonths:  w.Len(),
		MonthlyTotals: monthly,
		Forecast: models.Forecast{
			NextMonth:      toDecimal(round(forecast, 2)),
			TrendPercent:   round(trendPercent, 2),
			SeasonalFactor: round(seasonalFactor, 2),
			Explanation:    explain(trendPercent, seasonalFactor),
		},
		Insights: detectInsights(agg, totals),
	}
}

// seasonalIndex picks the bucket sharing a calendar month with the month after
// the window, falling back to the most recent bucket.
func seasonalIndex(w Window) int {
	next := w.Next().Month()
	for i := range w.Len() {
		if w.Month(i).Month() == next {
			return i
		}
	}
	return w.Len() - 1
}

func explain(trendPercent, seasonalFactor float64) string {
	direction := "up"
	if trendPercent < 0 {
		direction = "down"
	}

	note := "Seasonality is neutral."
	if seasonalFactor != 1 {
		relation := "lower"
		if seasonalFactor > 1 {
			relation = "higher"
		}
		note = fmt.Sprintf("Next month is typically %s%% %s than average.",
			fixed(math.Abs((seasonalFactor-1)*100), 0), relation)
	}

	return fmt.Sprintf("Spending trend is %s %s%% per month. %s",
		direction, fixed(math.Abs(trendPercent), 1), note)
}

// aggregation holds the per-bucket and per-category sums of qualifying expenses.
type aggregation struct {
	totals     []decimal.Decimal
	categories []string
	byCategory map[string]*categorySeries
}

type categorySeries struct {
	monthly []decimal.Decimal
	total   decimal.Decimal
}

func aggregate(w Window, transactions []models.TransactionRecord) *aggregation {
	agg := &aggregation{
		totals:     make([]decimal.Decimal, w.Len()),
		byCategory: make(map[string]*categorySeries),
	}

	for _, t := range transactions {
		if !t.IsExpense() {
			continue
		}
		idx, ok := w.IndexOf(t.Date)
		if !ok {
			continue
		}

		agg.totals[idx] = agg.totals[idx].Add(t.Amount)

		name := string(models.CategoryOrDefault(t.Category))
		series, ok := agg.byCategory[name]
		if !ok {
			series = &categorySeries{monthly: make([]decimal.Decimal, w.Len())}
			agg.byCategory[name] = series
			agg.categories = append(agg.categories, name)
		}
		series.monthly[idx] = series.monthly[idx].Add(t.Amount)
		series.total = series.total.Add(t.Amount)
	}

	return agg
}

func (a *aggregation) floatTotals() []float64 {
	return toFloats(a.totals)
}

func toFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}
