package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/maishanyun/pantry/internal/ingest"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <kind> <file.csv>",
		Short: "Validate and load a CSV dataset into the store",
		Long: `Validate a headered CSV file against the dataset schema and load it into
the store. Kind is one of: ingredients, purchases, shipments, usage, sales.
Identifier columns are canonicalized during parsing. Nothing is written
when any row fails validation.

Example:
  pantry ingest usage ./usage.csv --db ./pantry.db
  pantry ingest ingredients ./catalog.csv --db ./pantry.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(rootOpts, ingest.Kind(args[0]), args[1], cmd)
		},
	}
	return cmd
}

func runIngest(opts *RootOptions, kind ingest.Kind, path string, cmd *cobra.Command) error {
	setupLogging(opts)
	formatter := newFormatter(cmd, opts)

	if !validKind(kind) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown dataset kind %q: must be one of %v", kind, ingest.Kinds()))
	}

	f, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input file", err)
	}
	defer f.Close()

	ds := &ingest.Dataset{Filename: filepath.Base(path)}
	if err := ingest.ParseCSV(ds, kind, f); err != nil {
		return WrapExitError(ExitFailure, "failed to parse CSV", err)
	}
	formatter.VerboseLog("parsed %d rows from %s", ds.Rows(), path)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	rec, err := ingest.Ingest(cmd.Context(), st, ds, time.Now())
	if err != nil {
		return WrapExitError(ExitFailure, "ingest failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(map[string]any{
			"file_id":  rec.ID,
			"filename": rec.Filename,
			"rows":     rec.Rows,
		})
	}
	fmt.Fprintf(formatter.Writer, "Ingested %d rows from %s (file id %s)\n",
		rec.Rows, rec.Filename, rec.ID)
	return nil
}

func validKind(kind ingest.Kind) bool {
	for _, k := range ingest.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
