package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrSummaryNotFound is returned by summary stores when a user has no summary.
var ErrSummaryNotFound = errors.New("analytics summary not found")

// InsightType identifies the rule that produced an insight.
type InsightType string

const (
	InsightSpike       InsightType = "spike"
	InsightAnomaly     InsightType = "anomaly"
	InsightTopCategory InsightType = "top_category"
	InsightVolatility  InsightType = "volatility"
)

// Insight is a short observation about spending behaviour.
type Insight struct {
	Type   InsightType `json:"type"`
	Title  string      `json:"title"`
	Detail string      `json:"detail"`
}

// MonthlyTotal is the summed expense amount for one YYYY-MM bucket.
type MonthlyTotal struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// Forecast describes the projected spending for the month after the window.
type Forecast struct {
	NextMonth      decimal.Decimal `json:"nextMonth"`
	TrendPercent   float64         `json:"trendPercent"`
	SeasonalFactor float64         `json:"seasonalFactor"`
	Explanation    string          `json:"explanation"`
}

// AnalyticsSummary is the per-user document produced by the analytics engine.
// UpdatedAt is left zero by the engine and assigned when the summary is stored.
type AnalyticsSummary struct {
	UpdatedAt     time.Time      `json:"updatedAt"`
	WindowMonths  int            `json:"windowMonths"`
	MonthlyTotals []MonthlyTotal `json:"monthlyTotals"`
	Forecast      Forecast       `json:"forecast"`
	Insights      []Insight      `json:"insights"`
}

// HasInsight reports whether the summary contains an insight of the given type.
func (s *AnalyticsSummary) HasInsight(t InsightType) bool {
	for _, in := range s.Insights {
		if in.Type == t {
			return true
		}
	}
	return false
}
