// abpload loads Ordnance Survey AddressBase Premium CSV extracts into a
// relational database, tracking which files have been ingested so runs
// are idempotent and resumable.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TimGJ/AddressBasePremium/internal/config"
)

var (
	cfg     config.Config
	verbose bool

	logger *zap.Logger
	slog   *zap.SugaredLogger

	// exitCode carries per-file failures out of a completed run. Errors
	// returned up through cobra mean the run never got going and exit 2.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "abpload",
	Short: "Load AddressBase Premium extracts into a database",
	Long: `abpload ingests Ordnance Survey AddressBase Premium CSV extracts into
Postgres, SQL Server, MySQL or SQLite, recreating the dataset's typed
schema per v2.3 of the technical specification.

Each input file is loaded atomically and recorded, so an interrupted run
can simply be re-run: finished files are skipped, unfinished ones leave
nothing behind. Connection settings may also come from ABPLOAD_*
environment variables; flags win.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		slog = logger.Sugar()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	cfg = config.FromEnv(os.Getenv)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&cfg.Connector, "connector", cfg.Connector, "database engine: postgres, sqlserver, mysql or sqlite")
	pf.StringVar(&cfg.DSN, "dsn", cfg.DSN, "full connection string, overrides host/port/username/password/dbname")
	pf.StringVar(&cfg.Host, "host", cfg.Host, "database host")
	pf.StringVar(&cfg.Port, "port", cfg.Port, "database port (engine default when empty)")
	pf.StringVarP(&cfg.Username, "username", "u", cfg.Username, "database user")
	pf.StringVarP(&cfg.Password, "password", "p", cfg.Password, "database password")
	pf.StringVarP(&cfg.DBName, "dbname", "d", cfg.DBName, "database name, or the database file for sqlite")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(codesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
