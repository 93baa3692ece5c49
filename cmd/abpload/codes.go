package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TimGJ/AddressBasePremium/internal/abp"
)

// codeTables maps the table argument to the v2.3 code lists.
var codeTables = map[string]map[string]string{
	"postal":  abp.PostalCodes,
	"country": abp.CountryCodes,
	"rpc":     abp.RPCCodes,
	"state":   abp.BLPUStateCodes,
}

var codesCmd = &cobra.Command{
	Use:   "codes [table]",
	Short: "Print the specification's code tables",
	Long: `Print the coded-value lookups from v2.3 of the AddressBase Premium
technical specification. With no argument, all tables are printed.

Tables: postal, country, rpc, state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCodes,
}

func runCodes(cmd *cobra.Command, args []string) error {
	names := make([]string, 0, len(codeTables))
	for name := range codeTables {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(args) == 1 {
		if _, ok := codeTables[args[0]]; !ok {
			return fmt.Errorf("unknown code table %q, want one of %v", args[0], names)
		}
		names = args
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	for i, name := range names {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\t\n", name)
		table := codeTables[name]
		for _, code := range abp.SortedCodes(table) {
			fmt.Fprintf(w, "  %s\t%s\n", code, table[code])
		}
	}
	return w.Flush()
}
