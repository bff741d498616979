package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Jaikumar96/fincategorizer/internal/analytics"
	"github.com/Jaikumar96/fincategorizer/internal/cli"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

func analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Report classification accuracy and spending",
	}

	cmd.PersistentFlags().Bool("json", false, "print JSON instead of tables")

	cmd.AddCommand(accuracyCmd())
	cmd.AddCommand(distributionCmd())
	cmd.AddCommand(trendsCmd())
	cmd.AddCommand(dashboardCmd())

	return cmd
}

func accuracyCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "accuracy",
		Short: "Show how often the classifier was right",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.analytics.Accuracy(cmd.Context(), a.session(), days)
			if err != nil {
				return err
			}
			return output(cmd, report, func(w io.Writer) {
				fmt.Fprintln(w, cli.RenderAccuracy(report, fmt.Sprintf("last %d days", days)))
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", analytics.DefaultWindowDays, "window size in days, ending today")
	return cmd
}

func distributionCmd() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Show spending per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := parseWindow(startDate, endDate)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			dist, err := a.analytics.CategoryDistribution(cmd.Context(), a.session(), w)
			if err != nil {
				return err
			}
			return output(cmd, dist, func(out io.Writer) {
				fmt.Fprintln(out, cli.RenderDistribution(dist))
			})
		},
	}

	addWindowFlags(cmd, &startDate, &endDate)
	return cmd
}

func trendsCmd() *cobra.Command {
	var startDate, endDate, groupBy string

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show spending over time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := parseWindow(startDate, endDate)
			if err != nil {
				return err
			}
			g, err := model.ParseGroupBy(groupBy)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			points, err := a.analytics.Trends(cmd.Context(), a.session(), g, w)
			if err != nil {
				return err
			}
			return output(cmd, points, func(out io.Writer) {
				fmt.Fprintln(out, cli.RenderTrends(points, g))
			})
		},
	}

	addWindowFlags(cmd, &startDate, &endDate)
	cmd.Flags().StringVar(&groupBy, "group-by", "day", "bucket size: day, week or month")
	return cmd
}

func dashboardCmd() *cobra.Command {
	var startDate, endDate, groupBy string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show accuracy, distribution and trends together",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := parseWindow(startDate, endDate)
			if err != nil {
				return err
			}
			g, err := model.ParseGroupBy(groupBy)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			dash, err := a.analytics.Dashboard(cmd.Context(), a.session(), g, w)
			if err != nil {
				return err
			}
			return output(cmd, dash, func(out io.Writer) {
				fmt.Fprintln(out, cli.FormatTitle(cli.ChartIcon+" Dashboard"))
				fmt.Fprintln(out, cli.RenderAccuracy(dash.Accuracy, windowLabel(w)))
				fmt.Fprintln(out)
				fmt.Fprintln(out, cli.RenderDistribution(dash.Distribution))
				fmt.Fprintln(out)
				fmt.Fprintln(out, cli.RenderTrends(dash.Trends, g))
			})
		},
	}

	addWindowFlags(cmd, &startDate, &endDate)
	cmd.Flags().StringVar(&groupBy, "group-by", "week", "bucket size: day, week or month")
	return cmd
}

func addWindowFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start-date", "", "first day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(end, "end-date", "", "last day of the window (YYYY-MM-DD)")
}

// parseWindow parses optional inclusive date bounds.
func parseWindow(start, end string) (analytics.Window, error) {
	var w analytics.Window
	if start != "" {
		d, err := model.ParseDate(start)
		if err != nil {
			return w, err
		}
		w.Start = &d
	}
	if end != "" {
		d, err := model.ParseDate(end)
		if err != nil {
			return w, err
		}
		w.End = &d
	}
	return w, w.Validate()
}

func windowLabel(w analytics.Window) string {
	switch {
	case w.Start != nil && w.End != nil:
		return w.Start.String() + " to " + w.End.String()
	case w.Start != nil:
		return "since " + w.Start.String()
	case w.End != nil:
		return "until " + w.End.String()
	default:
		return "all time"
	}
}

// output prints v as indented JSON when --json is set and calls render
// otherwise.
func output(cmd *cobra.Command, v any, render func(io.Writer)) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		render(cmd.OutOrStdout())
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
