package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jaikumar96/fincategorizer/internal/cli"
	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/ingest"
)

func importCmd() *cobra.Command {
	var (
		limit      int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import and categorize a transaction export",
		Long: `Read a CSV, OFX/QFX or XLSX export, classify every row and store the results.

Rows that cannot be parsed or classified are reported individually; the rest
of the file is still imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			records, err := readFile(path)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), appConfig)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			handler := cli.NewInterruptHandler(out)
			ctx := handler.HandleInterrupts(cmd.Context(), "Import", "Rows finished before the interrupt were stored.")

			var progress *cli.ImportProgress
			var update func(done, total int)
			if !noProgress && len(records) > 0 {
				progress = cli.NewImportProgress(cmd.ErrOrStderr(), len(records), "Categorizing "+filepath.Base(path))
				update = progress.Update
			}

			result, err := a.pipeline(update).Ingest(ctx, a.session(), records, limit)
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Fprintln(out, cli.RenderUploadSummary(result, a.cfg.Triage))
			if result.FailureCount > 0 {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d of %d rows were not imported", result.FailureCount, result.TotalRecords)))
			} else {
				fmt.Fprintln(out, cli.FormatSuccess("All rows imported"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "reject files with more rows than this (default: ingest.max_batch_size)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw a progress bar")

	return cmd
}

func readFile(path string) ([]ingest.RawRecord, error) {
	var read func(io.Reader) ([]ingest.RawRecord, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		read = ingest.ReadCSV
	case ".ofx", ".qfx":
		read = ingest.ReadOFX
	case ".xlsx":
		read = ingest.ReadXLSX
	default:
		return nil, common.NewUserError(
			fmt.Sprintf("unsupported file type %q: expected .csv, .ofx, .qfx or .xlsx", filepath.Ext(path)), nil)
	}

	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	records, err := read(f)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("failed to read %s", path), err)
	}
	return records, nil
}
