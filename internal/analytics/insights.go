package analytics

import (
	"fmt"

	"github.com/rocjay1/spend-analytics/internal/models"
	"github.com/shopspring/decimal"
)

const (
	spikeRatio     = 1.3
	anomalyStdDevs = 1.5
)

// detectInsights evaluates the insight rules in their fixed order.
func detectInsights(agg *aggregation, totals []float64) []models.Insight {
	insights := []models.Insight{}
	if len(totals) == 0 {
		return insights
	}

	last := totals[len(totals)-1]
	priorAvg := mean(totals[:len(totals)-1])
	avg := mean(totals)
	std := stdDev(totals)

	if priorAvg > 0 && last > priorAvg*spikeRatio {
		insights = append(insights, models.Insight{
			Type:   models.InsightSpike,
			Title:  "Spending spike detected",
			Detail: fmt.Sprintf("Last month spending was %s%% of your 12-month average.", fixed(last/priorAvg*100, 0)),
		})
	}

	if std > 0 && last > avg+anomalyStdDevs*std {
		insights = append(insights, models.Insight{
			Type:   models.InsightAnomaly,
			Title:  "Unusual spending month",
			Detail: fmt.Sprintf("Last month was %s%% of your average.", fixed(last/avg*100, 0)),
		})
	}

	if name, total, ok := agg.topCategory(); ok {
		perMonth := total.Div(decimal.NewFromInt(int64(len(totals)))).Round(0)
		insights = append(insights, models.Insight{
			Type:   models.InsightTopCategory,
			Title:  "Top spending category",
			Detail: fmt.Sprintf("%s averages %s per month.", name, perMonth.String()),
		})
	}

	if name, ok := agg.mostVolatile(); ok {
		insights = append(insights, models.Insight{
			Type:   models.InsightVolatility,
			Title:  "Most volatile category",
			Detail: fmt.Sprintf("%s varies the most month-to-month.", name),
		})
	}

	return insights
}

// topCategory returns the category with the highest window total. Ties keep
// the category seen first.
func (a *aggregation) topCategory() (string, decimal.Decimal, bool) {
	var (
		best  string
		total decimal.Decimal
		found bool
	)
	for _, name := range a.categories {
		t := a.byCategory[name].total
		if !found || t.GreaterThan(total) {
			best, total, found = name, t, true
		}
	}
	return best, total, found
}

// mostVolatile returns the category whose monthly series has the strictly
// highest standard deviation above zero.
func (a *aggregation) mostVolatile() (string, bool) {
	var (
		best    string
		bestStd float64
	)
	for _, name := range a.categories {
		if std := stdDev(toFloats(a.byCategory[name].monthly)); std > bestStd {
			best, bestStd = name, std
		}
	}
	return best, bestStd > 0
}
