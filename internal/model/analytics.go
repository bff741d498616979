package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AccuracyReport summarizes how often the classifier was right.
type AccuracyReport struct {
	TotalTransactions  int     `json:"totalTransactions"`
	CorrectPredictions int     `json:"correctPredictions"`
	UserCorrections    int     `json:"userCorrections"`
	OverallAccuracy    float64 `json:"overallAccuracy"`
	AvgConfidenceScore float64 `json:"avgConfidenceScore"`
	// RecentCorrections counts correction events made since the window
	// began, whatever the transaction's own date.
	RecentCorrections int `json:"recentCorrections,omitempty"`
}

// CategoryDistribution is one category's share of spending.
type CategoryDistribution struct {
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	CategoryName string          `json:"categoryName"`
	Icon         string          `json:"icon"`
	Color        string          `json:"color"`
	CategoryID   int             `json:"categoryId"`
	Count        int             `json:"count"`
	Percentage   float64         `json:"percentage"`
}

// TrendPoint aggregates the transactions that fall in one time bucket.
type TrendPoint struct {
	Date             Date            `json:"date"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TransactionCount int             `json:"transactionCount"`
	AvgConfidence    float64         `json:"avgConfidence"`
}

// GroupBy is a trend bucket granularity.
type GroupBy string

const (
	// GroupByDay buckets by calendar day.
	GroupByDay GroupBy = "day"
	// GroupByWeek buckets by ISO week, starting Monday.
	GroupByWeek GroupBy = "week"
	// GroupByMonth buckets by calendar month.
	GroupByMonth GroupBy = "month"
)

// ParseGroupBy parses a granularity name; empty means day.
func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GroupByDay, nil
	case GroupByDay, GroupByWeek, GroupByMonth:
		return g, nil
	default:
		return "", fmt.Errorf("invalid groupBy %q: must be day, week or month", s)
	}
}

// Dashboard bundles the three analytics views for one window.
type Dashboard struct {
	Accuracy     AccuracyReport         `json:"accuracy"`
	Distribution []CategoryDistribution `json:"distribution"`
	Trends       []TrendPoint           `json:"trends"`
}
