// Package analytics summarizes classification accuracy, category spending
// and spending over time.
//
// The aggregate functions are pure: they read a snapshot of transactions and
// never fail. An empty snapshot yields zero values.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

const uncategorized = "Uncategorized"

var hundred = decimal.NewFromInt(100)

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Accuracy reports how many transactions the classifier got right. A
// prediction counts as correct when the user never corrected it and its
// score is at or above the auto-accept threshold. OverallAccuracy is a
// percentage; AvgConfidenceScore averages the transactions that have a score.
func Accuracy(txns []model.Transaction, th triage.Thresholds) model.AccuracyReport {
	report := model.AccuracyReport{TotalTransactions: len(txns)}
	if len(txns) == 0 {
		return report
	}

	var (
		sum    float64
		scored int
	)
	for i := range txns {
		txn := &txns[i]
		if txn.IsUserCorrected {
			report.UserCorrections++
		} else if th.IsAutoAccepted(txn.ConfidenceScore) {
			report.CorrectPredictions++
		}
		if score, ok := txn.Confidence(); ok {
			sum += score
			scored++
		}
	}

	report.OverallAccuracy = round(float64(report.CorrectPredictions)/float64(report.TotalTransactions)*100, 2)
	if scored > 0 {
		report.AvgConfidenceScore = round(sum/float64(scored), 4)
	}
	return report
}

// Distribution groups transactions by category. Percentages are shares of
// the total amount, or of the transaction count when every amount is zero.
// Categories are ordered by amount, largest first, then by ID.
func Distribution(txns []model.Transaction) []model.CategoryDistribution {
	byCategory := make(map[int]*model.CategoryDistribution)
	total := decimal.Zero

	for i := range txns {
		txn := &txns[i]
		d, ok := byCategory[txn.CategoryID]
		if !ok {
			d = &model.CategoryDistribution{
				CategoryID:   txn.CategoryID,
				CategoryName: uncategorized,
				TotalAmount:  decimal.Zero,
			}
			if txn.Category != nil {
				d.CategoryName = txn.Category.Name
				d.Icon = txn.Category.Icon
				d.Color = txn.Category.Color
			}
			byCategory[txn.CategoryID] = d
		}
		d.Count++
		d.TotalAmount = d.TotalAmount.Add(txn.Amount)
		total = total.Add(txn.Amount)
	}

	out := make([]model.CategoryDistribution, 0, len(byCategory))
	for _, d := range byCategory {
		if total.IsPositive() {
			d.Percentage = d.TotalAmount.Mul(hundred).Div(total).Round(2).InexactFloat64()
		} else {
			d.Percentage = round(float64(d.Count)/float64(len(txns))*100, 2)
		}
		out = append(out, *d)
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// BucketStart returns the first day of the bucket containing d. Weeks start
// on Monday.
func BucketStart(d model.Date, groupBy model.GroupBy) model.Date {
	switch groupBy {
	case model.GroupByWeek:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDays(-offset)
	case model.GroupByMonth:
		return model.NewDate(d.Year(), d.Month(), 1)
	default:
		return d
	}
}

type bucket struct {
	total  decimal.Decimal
	sum    float64
	count  int
	scored int
}

// Trends groups transactions into day, week or month buckets keyed by the
// first day of the bucket. Points are chronological and buckets without
// transactions are omitted. AvgConfidence averages the scored transactions
// of the bucket.
func Trends(txns []model.Transaction, groupBy model.GroupBy) []model.TrendPoint {
	buckets := make(map[time.Time]*bucket)

	for i := range txns {
		txn := &txns[i]
		key := BucketStart(txn.TransactionDate, groupBy).Time
		b, ok := buckets[key]
		if !ok {
			b = &bucket{total: decimal.Zero}
			buckets[key] = b
		}
		b.count++
		b.total = b.total.Add(txn.Amount)
		if score, ok := txn.Confidence(); ok {
			b.sum += score
			b.scored++
		}
	}

	points := make([]model.TrendPoint, 0, len(buckets))
	for start, b := range buckets {
		p := model.TrendPoint{
			Date:             model.Date{Time: start},
			TotalAmount:      b.total,
			TransactionCount: b.count,
		}
		if b.scored > 0 {
			p.AvgConfidence = round(b.sum/float64(b.scored), 4)
		}
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date.Time)
	})
	return points
}
