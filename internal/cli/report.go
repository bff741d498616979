package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/triage"
)

// maxListedErrors caps how many row errors the import summary prints.
const maxListedErrors = 20

// RenderUploadSummary formats the outcome of a batch import, including the
// per-tier breakdown of the stored rows.
func RenderUploadSummary(result *model.UploadResult, th triage.Thresholds) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total records:  %d\n", result.TotalRecords)
	fmt.Fprintf(&b, "Stored:         %s\n", SuccessStyle.Render(fmt.Sprint(result.SuccessCount)))
	if result.FailureCount > 0 {
		fmt.Fprintf(&b, "Failed:         %s\n", ErrorStyle.Render(fmt.Sprint(result.FailureCount)))
	} else {
		fmt.Fprintf(&b, "Failed:         0\n")
	}

	if len(result.Transactions) > 0 {
		counts := make(map[triage.Tier]int, 3)
		for i := range result.Transactions {
			counts[th.TierOf(result.Transactions[i].ConfidenceScore)]++
		}
		b.WriteString("\n")
		for _, tier := range []triage.Tier{triage.AutoAccepted, triage.NeedsReview, triage.LowConfidence} {
			fmt.Fprintf(&b, "  %-16s %d\n", FormatTier(tier), counts[tier])
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString("\n" + BoldStyle.Render("Row errors") + "\n")
		for i, e := range result.Errors {
			if i == maxListedErrors {
				fmt.Fprintf(&b, "  %s\n", SubtleStyle.Render(fmt.Sprintf("... and %d more", len(result.Errors)-maxListedErrors)))
				break
			}
			merchant := e.MerchantName
			if merchant == "" {
				merchant = "(no merchant)"
			}
			fmt.Fprintf(&b, "  row %d  %s: %s\n", e.RowNumber, merchant, ErrorStyle.Render(e.Error))
		}
	}

	return RenderBox("Import summary", strings.TrimRight(b.String(), "\n"))
}

// RenderAccuracy formats an accuracy report. window describes the period
// the report covers.
func RenderAccuracy(r model.AccuracyReport, window string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Window:               %s\n", window)
	fmt.Fprintf(&b, "Transactions:         %d\n", r.TotalTransactions)
	fmt.Fprintf(&b, "Correct predictions:  %d\n", r.CorrectPredictions)
	fmt.Fprintf(&b, "User corrections:     %d\n", r.UserCorrections)
	if r.RecentCorrections > 0 {
		fmt.Fprintf(&b, "Corrections made:     %d\n", r.RecentCorrections)
	}
	fmt.Fprintf(&b, "Overall accuracy:     %.2f%%\n", r.OverallAccuracy)
	fmt.Fprintf(&b, "Avg confidence:       %.4f", r.AvgConfidenceScore)
	return RenderBox(ChartIcon+" Accuracy", b.String())
}

// RenderDistribution formats spending per category as a table.
func RenderDistribution(dist []model.CategoryDistribution) string {
	if len(dist) == 0 {
		return InfoStyle.Render("No transactions in this window.")
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("Category"),
		TableHeaderStyle.Render("Amount"),
		TableHeaderStyle.Render("Count"),
		TableHeaderStyle.Render("Share"))
	for _, d := range dist {
		name := d.CategoryName
		if d.Icon != "" {
			name = d.Icon + " " + name
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f%%\n", name, d.TotalAmount.StringFixed(2), d.Count, d.Percentage)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderTrends formats trend buckets as a table.
func RenderTrends(points []model.TrendPoint, groupBy model.GroupBy) string {
	if len(points) == 0 {
		return InfoStyle.Render("No transactions in this window.")
	}

	bucket := "Date"
	switch groupBy {
	case model.GroupByWeek:
		bucket = "Week of"
	case model.GroupByMonth:
		bucket = "Month"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render(bucket),
		TableHeaderStyle.Render("Amount"),
		TableHeaderStyle.Render("Count"),
		TableHeaderStyle.Render("Avg confidence"))
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\n", p.Date, p.TotalAmount.StringFixed(2), p.TransactionCount, p.AvgConfidence)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderCategories lists categories with their type.
func RenderCategories(cats []model.Category) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("ID"),
		TableHeaderStyle.Render("Name"),
		TableHeaderStyle.Render("Type"),
		TableHeaderStyle.Render("Description"))
	for _, c := range cats {
		desc := c.Description
		if desc == "" {
			desc = SubtleStyle.Render("(no description)")
		}
		name := c.Name
		if c.Icon != "" {
			name = c.Icon + " " + name
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, name, c.Type, desc)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// RenderCorrections lists the correction history of one transaction, oldest
// first.
func RenderCorrections(history []model.Correction, names map[int]string) string {
	if len(history) == 0 {
		return InfoStyle.Render("No corrections recorded.")
	}

	label := func(id int) string {
		if n, ok := names[id]; ok {
			return n
		}
		return fmt.Sprintf("#%d", id)
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
		TableHeaderStyle.Render("When"),
		TableHeaderStyle.Render("From"),
		TableHeaderStyle.Render("To"),
		TableHeaderStyle.Render("Notes"))
	for _, c := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			c.CorrectedAt.Format("2006-01-02 15:04"), label(c.OriginalCategoryID), label(c.CorrectedCategoryID), c.Note)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
