package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Jaikumar96/fincategorizer/internal/cli"
	"github.com/Jaikumar96/fincategorizer/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

With --backup, a consistent copy of the database is written first.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the current schema version without applying changes")
	cmd.Flags().String("backup", "", "absolute path to write a backup to before migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	backup, _ := cmd.Flags().GetString("backup")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	dbPath := appConfig.Database.Path

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintf(out, "Database:        %s\n", dbPath)
		fmt.Fprintf(out, "Current version: %d\n", current)
		fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		return nil
	}

	if backup != "" {
		if err := store.Backup(ctx, backup); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Fprintln(out, cli.FormatSuccess("Backup written to "+backup))
	}

	slog.Info("Running database migrations", "database", dbPath, "from_version", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database is at schema version %d", storage.ExpectedSchemaVersion)))
	return nil
}
