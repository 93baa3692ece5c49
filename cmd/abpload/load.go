package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/ingest"
)

var loadCmd = &cobra.Command{
	Use:   "load [files or globs]",
	Short: "Ingest AddressBase Premium CSV files",
	Long: `Ingest one or more extract files. Arguments may be plain paths or glob
patterns; --files-from adds paths from a list file. Files already loaded
are skipped unless --overwrite, which drops and recreates every table
first.

Exit status is 0 when every file loaded or was already loaded, 1 when any
file failed, 2 when the run could not start at all.`,
	Example: `  abpload load extracts/AddressBasePremium_*.csv
  abpload load --overwrite --workers 8 'extracts/*.csv'
  abpload load --files-from tonight.txt`,
	Args: cobra.ArbitraryArgs,
	RunE: runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.BoolVarP(&cfg.Overwrite, "overwrite", "o", cfg.Overwrite, "drop and recreate all tables, forgetting load history")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows buffered per record kind before a bulk insert")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "files ingested in parallel")
	f.IntVar(&cfg.MaxStorageFailures, "max-storage-failures", cfg.MaxStorageFailures, "consecutive storage failures before the run stops")
	f.StringVar(&cfg.SkippedDir, "skipped-dir", cfg.SkippedDir, "directory for rejected-row logs, empty disables them")
	f.StringVar(&cfg.FilesFrom, "files-from", cfg.FilesFrom, "file listing input paths, one per line")
	f.BoolVar(&cfg.Unlogged, "unlogged", cfg.Unlogged, "create Postgres tables UNLOGGED")
}

func runLoad(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	dialect, err := cfg.Dialect()
	if err != nil {
		return err
	}
	dsn, err := cfg.ResolveDSN()
	if err != nil {
		return err
	}
	catalog, err := abp.NewCatalog()
	if err != nil {
		return err
	}

	paths := args
	if cfg.FilesFrom != "" {
		listed, err := ingest.ReadFileList(cfg.FilesFrom)
		if err != nil {
			return fmt.Errorf("files-from: %w", err)
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 {
		return errors.New("no input files given")
	}
	files, err := ingest.ExpandPaths(paths, slog)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no input files matched")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	slog.Infow("starting run",
		"run_id", runID,
		"connector", cfg.Connector,
		"files", len(files),
		"workers", cfg.Workers,
		"batch_size", cfg.BatchSize,
		"overwrite", cfg.Overwrite)

	pipe := ingest.New(ingest.Options{
		Paths:              files,
		Overwrite:          cfg.Overwrite,
		BatchSize:          cfg.BatchSize,
		Workers:            cfg.Workers,
		MaxStorageFailures: cfg.MaxStorageFailures,
		SkippedDir:         cfg.SkippedDir,
		Unlogged:           cfg.Unlogged,
		RunID:              runID,
	}, catalog, dialect, db.Factory(dialect, dsn), slog)

	sum, err := pipe.Run(ctx)
	if sum == nil {
		return err
	}
	exitCode = sum.ExitCode()
	return nil
}
