package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jaikumar96/fincategorizer/internal/cli"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage spending categories",
		Long:  `List the built-in categories and add, update or delete your own.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(updateCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx, appConfig.CLI.UserID)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCategories(categories))
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var icon, color, description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category := &model.Category{
				Name:        strings.TrimSpace(args[0]),
				Type:        model.CategoryTypeCustom,
				Icon:        icon,
				Color:       color,
				Description: description,
				UserID:      appConfig.CLI.UserID,
			}
			if err := store.CreateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "emoji shown next to the name")
	cmd.Flags().StringVar(&color, "color", "", "hex color such as #4ECDC4")
	cmd.Flags().StringVar(&description, "description", "", "category description")

	return cmd
}

func updateCategoryCmd() *cobra.Command {
	var icon, color, description string

	cmd := &cobra.Command{
		Use:   "update <id> <name>",
		Short: "Rename or restyle a custom category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid category ID: %w", err)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category := &model.Category{
				ID:          id,
				Name:        strings.TrimSpace(args[1]),
				Type:        model.CategoryTypeCustom,
				Icon:        icon,
				Color:       color,
				Description: description,
				UserID:      appConfig.CLI.UserID,
			}
			if err := store.UpdateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to update category %d: %w", id, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated category %d to %q", id, category.Name)))
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "", "emoji shown next to the name")
	cmd.Flags().StringVar(&color, "color", "", "hex color such as #4ECDC4")
	cmd.Flags().StringVar(&description, "description", "", "category description")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom category",
		Long:  `Delete a custom category. Categories still assigned to transactions cannot be deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid category ID: %w", err)
			}

			ctx := cmd.Context()
			store, err := initStorage(ctx, appConfig)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCategory(ctx, appConfig.CLI.UserID, id); err != nil {
				return fmt.Errorf("failed to delete category %d: %w", id, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %d", id)))
			return nil
		},
	}
}
