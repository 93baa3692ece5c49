package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/tracker"
)

var forgetCmd = &cobra.Command{
	Use:   "forget [file names]",
	Short: "Drop load history for files so they reload next run",
	Long: `Remove the tracking rows for the named files. Their table rows are left
in place; pair with load --overwrite for a clean rebuild. Names are
matched by base name, so a full path works too.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	conn, err := db.Open(ctx, dialect, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	tr := tracker.New(catalog, dialect)
	out := cmd.OutOrStdout()
	for _, arg := range args {
		name := filepath.Base(arg)
		n, err := tr.Forget(ctx, conn, name)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintf(out, "%s: not tracked\n", name)
			continue
		}
		fmt.Fprintf(out, "%s: forgot %d entries\n", name, n)
	}
	return nil
}
