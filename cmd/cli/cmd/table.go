// Package cmd - table and jurisdictions commands
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/app"
)

var (
	tableState    string
	tableCategory string
	tableFormat   string
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Show the rate table for a state and category",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			t, err := a.Resolver.Table(cmd.Context(), tableState, tableCategory)
			if err != nil {
				return err
			}
			if strings.EqualFold(tableFormat, "json") {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			printTable(cmd.OutOrStdout(), t)
			return nil
		})
	},
}

var jurisdictionsCmd = &cobra.Command{
	Use:   "jurisdictions",
	Short: "List states and their categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			idx, err := a.Resolver.Jurisdictions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, j := range idx {
				fmt.Fprintf(out, "%s: %s\n", j.Name, strings.Join(j.Categories, ", "))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(jurisdictionsCmd)

	tableCmd.Flags().StringVarP(&tableState, "state", "s", "", "state or jurisdiction [REQUIRED]")
	tableCmd.Flags().StringVarP(&tableCategory, "category", "c", tariff.DefaultCategory, "consumer category")
	tableCmd.Flags().StringVarP(&tableFormat, "format", "f", "text", "output format (text, json)")
	_ = tableCmd.MarkFlagRequired("state")
}

// printTable mirrors the engine: slabs win over a flat rate when both are set
func printTable(out io.Writer, t *tariff.Table) {
	fmt.Fprintf(out, "%s / %s\n\n", t.Jurisdiction, t.Category)

	switch {
	case len(t.Slabs) > 0:
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "UP TO\tRATE")
		for _, s := range t.Slabs {
			upto := "above"
			if !s.Unbounded() {
				upto = s.UpTo.String()
			}
			fmt.Fprintf(w, "%s\t%s\n", upto, s.Rate.String())
		}
		w.Flush()
	case t.FlatRate != nil:
		fmt.Fprintf(out, "Flat rate:     %s per unit\n", t.FlatRate.String())
	}
	fmt.Fprintf(out, "Fixed charge:  %s\n", t.FixedCharge.String())

	printMultipliers(out, "Season", t.SeasonMultipliers)
	printMultipliers(out, "Time of day", t.TimeOfDayMultipliers)
}

func printMultipliers(out io.Writer, title string, m map[string]decimal.Decimal) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k].String()
	}
	fmt.Fprintf(out, "%s: %s\n", title, strings.Join(parts, " "))
}
