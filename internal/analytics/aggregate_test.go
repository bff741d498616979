package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/testutil"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

func withCategory(txn model.Transaction) model.Transaction {
	for _, c := range model.DefaultCategories() {
		if c.ID == txn.CategoryID {
			txn.Category = &c
		}
	}
	return txn
}

func TestAccuracy(t *testing.T) {
	txns := []model.Transaction{
		testutil.NewTransaction("a").WithConfidence(0.9).Build(),
		testutil.NewTransaction("b").WithConfidence(0.9).Build(),
		testutil.NewTransaction("c").WithConfidence(0.5).Corrected().Build(),
	}

	report := Accuracy(txns, triage.DefaultThresholds())
	assert.Equal(t, 3, report.TotalTransactions)
	assert.Equal(t, 2, report.CorrectPredictions)
	assert.Equal(t, 1, report.UserCorrections)
	assert.InDelta(t, 66.67, report.OverallAccuracy, 0.01)
	assert.InDelta(t, 0.7667, report.AvgConfidenceScore, 0.0001)
}

func TestAccuracy_CorrectedHighConfidenceIsNotCorrect(t *testing.T) {
	txns := []model.Transaction{
		testutil.NewTransaction("a").WithConfidence(0.99).Corrected().Build(),
		testutil.NewTransaction("b").WithConfidence(0.85).Build(),
		testutil.NewTransaction("c").WithConfidence(0.8499).Build(),
		testutil.NewTransaction("d").WithoutConfidence().Build(),
	}

	report := Accuracy(txns, triage.DefaultThresholds())
	assert.Equal(t, 1, report.CorrectPredictions)
	assert.Equal(t, 1, report.UserCorrections)
	assert.InDelta(t, 25.0, report.OverallAccuracy, 1e-9)
	assert.InDelta(t, (0.99+0.85+0.8499)/3, report.AvgConfidenceScore, 0.0001)
}

func TestAccuracy_Empty(t *testing.T) {
	assert.Equal(t, model.AccuracyReport{}, Accuracy(nil, triage.DefaultThresholds()))
}

func TestDistribution(t *testing.T) {
	txns := []model.Transaction{
		withCategory(testutil.NewTransaction("swiggy").WithCategory(1).WithAmount("300").Build()),
		withCategory(testutil.NewTransaction("zomato").WithCategory(1).WithAmount("200").Build()),
		withCategory(testutil.NewTransaction("uber").WithCategory(3).WithAmount("250").Build()),
		withCategory(testutil.NewTransaction("ola").WithCategory(2).WithAmount("250").Build()),
	}

	dist := Distribution(txns)
	require.Len(t, dist, 3)

	assert.Equal(t, 1, dist[0].CategoryID)
	assert.Equal(t, "Food & Dining", dist[0].CategoryName)
	assert.Equal(t, "#FF6B6B", dist[0].Color)
	assert.Equal(t, 2, dist[0].Count)
	assert.True(t, decimal.NewFromInt(500).Equal(dist[0].TotalAmount))
	assert.InDelta(t, 50.0, dist[0].Percentage, 1e-9)

	// Equal amounts fall back to category ID order.
	assert.Equal(t, 2, dist[1].CategoryID)
	assert.Equal(t, 3, dist[2].CategoryID)

	var sum float64
	for _, d := range dist {
		sum += d.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestDistribution_RoundingStillSumsToHundred(t *testing.T) {
	txns := []model.Transaction{
		testutil.NewTransaction("a").WithCategory(1).WithAmount("1").Build(),
		testutil.NewTransaction("b").WithCategory(2).WithAmount("1").Build(),
		testutil.NewTransaction("c").WithCategory(3).WithAmount("1").Build(),
	}

	var sum float64
	for _, d := range Distribution(txns) {
		assert.InDelta(t, 33.33, d.Percentage, 1e-9)
		assert.Equal(t, uncategorized, d.CategoryName)
		sum += d.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.05)
}

func TestDistribution_ZeroAmountsUseCounts(t *testing.T) {
	txns := []model.Transaction{
		testutil.NewTransaction("a").WithCategory(1).WithAmount("0").Build(),
		testutil.NewTransaction("b").WithCategory(1).WithAmount("0").Build(),
		testutil.NewTransaction("c").WithCategory(2).WithAmount("0").Build(),
		testutil.NewTransaction("d").WithCategory(2).WithAmount("0").Build(),
	}

	dist := Distribution(txns)
	require.Len(t, dist, 2)
	assert.InDelta(t, 50.0, dist[0].Percentage, 1e-9)
	assert.InDelta(t, 50.0, dist[1].Percentage, 1e-9)
}

func TestDistribution_Empty(t *testing.T) {
	dist := Distribution(nil)
	assert.NotNil(t, dist)
	assert.Empty(t, dist)
}

func TestBucketStart(t *testing.T) {
	// 2025-01-15 is a Wednesday.
	wed := model.NewDate(2025, time.January, 15)
	sun := model.NewDate(2025, time.January, 19)
	mon := model.NewDate(2025, time.January, 13)

	assert.Equal(t, wed, BucketStart(wed, model.GroupByDay))
	assert.Equal(t, mon, BucketStart(wed, model.GroupByWeek))
	assert.Equal(t, mon, BucketStart(sun, model.GroupByWeek))
	assert.Equal(t, mon, BucketStart(mon, model.GroupByWeek))
	assert.Equal(t, model.NewDate(2025, time.January, 1), BucketStart(wed, model.GroupByMonth))

	// Weeks cross month and year boundaries.
	assert.Equal(t, model.NewDate(2024, time.December, 30), BucketStart(model.NewDate(2025, time.January, 1), model.GroupByWeek))
}

func TestTrends_Daily(t *testing.T) {
	txns := []model.Transaction{
		testutil.NewTransaction("c").WithDate(2025, time.January, 17).WithAmount("30").WithConfidence(0.9).Build(),
		testutil.NewTransaction("a").WithDate(2025, time.January, 15).WithAmount("10").WithConfidence(0.5).Build(),
		testutil.NewTransaction("b").WithDate(2025, time.January, 16).WithAmount("20").WithConfidence(0.7).Build(),
		testutil.NewTransaction("a2").WithDate(2025, time.January, 15).WithAmount("5").WithConfidence(0.7).Build(),
	}

	points := Trends(txns, model.GroupByDay)
	require.Len(t, points, 3)

	assert.Equal(t, model.NewDate(2025, time.January, 15), points[0].Date)
	assert.Equal(t, model.NewDate(2025, time.January, 16), points[1].Date)
	assert.Equal(t, model.NewDate(2025, time.January, 17), points[2].Date)

	assert.Equal(t, 2, points[0].TransactionCount)
	assert.True(t, decimal.NewFromInt(15).Equal(points[0].TotalAmount))
	assert.InDelta(t, 0.6, points[0].AvgConfidence, 1e-9)
}

func TestTrends_WeeklyAndMonthlyOmitEmptyBuckets(t *testing.T) {
	txns := []model.Transaction{
		testutil.NewTransaction("a").WithDate(2025, time.January, 13).Build(),
		testutil.NewTransaction("b").WithDate(2025, time.January, 19).Build(),
		testutil.NewTransaction("c").WithDate(2025, time.February, 3).Build(),
		testutil.NewTransaction("d").WithDate(2025, time.April, 1).WithoutConfidence().Build(),
	}

	weeks := Trends(txns, model.GroupByWeek)
	require.Len(t, weeks, 3)
	assert.Equal(t, model.NewDate(2025, time.January, 13), weeks[0].Date)
	assert.Equal(t, 2, weeks[0].TransactionCount)
	assert.Equal(t, model.NewDate(2025, time.February, 3), weeks[1].Date)
	assert.Equal(t, model.NewDate(2025, time.March, 31), weeks[2].Date)
	assert.Zero(t, weeks[2].AvgConfidence)

	months := Trends(txns, model.GroupByMonth)
	require.Len(t, months, 3, "March has no transactions and is omitted")
	assert.Equal(t, model.NewDate(2025, time.January, 1), months[0].Date)
	assert.Equal(t, model.NewDate(2025, time.February, 1), months[1].Date)
	assert.Equal(t, model.NewDate(2025, time.April, 1), months[2].Date)
}

func TestTrends_Empty(t *testing.T) {
	assert.Empty(t, Trends(nil, model.GroupByMonth))
}
