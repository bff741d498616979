package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Jaikumar96/fincategorizer/internal/cli"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
	"github.com/Jaikumar96/fincategorizer/internal/tui"
	"github.com/Jaikumar96/fincategorizer/internal/tui/themes"
)

func reviewCmd() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Work through low-confidence transactions interactively",
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

			summary, err := tui.Run(cmd.Context(), tui.Config{
				Reviewer:   a.review,
				Categories: a.store,
				Session:    a.session(),
				Filter:     service.TransactionFilter{StartDate: w.Start, EndDate: w.End},
			}, tui.WithTheme(themes.ByName(a.cfg.CLI.Theme)))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Reviewed %d transactions, %d still waiting", summary.Reviewed, summary.Pending)))
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start-date", "", "only review transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "only review transactions on or before this date (YYYY-MM-DD)")

	return cmd
}

func correctCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "correct <transaction-id> <category-id>",
		Short: "Assign a transaction to a different category",
		Long: `Record a correction. The merchant is remembered so future imports of the same
merchant use the corrected category.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			categoryID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid category ID %q: %w", args[1], err)
			}

			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			txn, err := a.review.Correct(cmd.Context(), a.session(), args[0], categoryID, note)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("%s is now %s", txn.MerchantName, txn.CategoryName())))
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "note stored with the correction")
	return cmd
}

func verifyCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "verify <transaction-id>",
		Short: "Confirm the suggested category of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			txn, err := a.review.Verify(cmd.Context(), a.session(), args[0], note)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Confirmed %s as %s", txn.MerchantName, txn.CategoryName())))
			return nil
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "note stored with the confirmation")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <transaction-id>",
		Short: "Show the correction history of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			history, err := a.review.History(cmd.Context(), a.session(), args[0])
			if err != nil {
				return err
			}
			cats, err := a.store.GetCategories(cmd.Context(), a.cfg.CLI.UserID)
			if err != nil {
				return fmt.Errorf("failed to load categories: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCorrections(history, categoryNames(cats)))
			return nil
		},
	}
}

func categoryNames(cats []model.Category) map[int]string {
	names := make(map[int]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}
