package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
	"github.com/TimGJ/AddressBasePremium/internal/db"
	"github.com/TimGJ/AddressBasePremium/internal/tracker"
)

var statusKinds bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which files have been loaded",
	Long: `List every tracked file with its row counts and load time. Superseded
entries (older loads of a re-ingested file) are marked.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusKinds, "kinds", false, "break row counts down by record kind")
}

func runStatus(cmd *cobra.Command, args []string) error {
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
	files, err := tr.Loaded(ctx, conn)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "no files loaded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tROWS\tREJECTS\tLOADED AT\tCHECKSUM\t")
	for _, f := range files {
		name := f.FileName
		if !f.Active() {
			name += " (superseded)"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t\n",
			name, f.RowsTotal, f.Errors,
			f.CreateEnd.Format("2006-01-02 15:04:05"), f.Checksum)
		if statusKinds {
			for _, k := range catalog.Kinds() {
				if n := f.PerKind[k.Table]; n > 0 {
					fmt.Fprintf(w, "  %s\t%d\t\t\t\t\n", k.Table, n)
				}
			}
		}
	}
	return w.Flush()
}
