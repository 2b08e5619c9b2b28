// Package cmd - compute command
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"slab-tariff/core/tariff"
	"slab-tariff/internal/app"
	"slab-tariff/internal/errors"
)

var (
	computeState     string
	computeCategory  string
	computeUnits     string
	computeSeason    string
	computeTimeOfDay string
	computeFormat    string
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute a bill for a number of units",
	Long: `Compute the bill for consumed units under the state's rate table.

The season is inferred from the current month when --season is omitted.

Examples:
  tariff compute --state "Tamil Nadu" --units 350
  tariff compute --state Kerala --category domestic --units 120.5 --format json
  tariff compute --state "Tamil Nadu" --units 500 --season summer --time-of-day peak`,
	RunE: runCompute,
}

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVarP(&computeState, "state", "s", "", "state or jurisdiction [REQUIRED]")
	computeCmd.Flags().StringVarP(&computeCategory, "category", "c", tariff.DefaultCategory, "consumer category")
	computeCmd.Flags().StringVarP(&computeUnits, "units", "u", "", "consumed units in kWh [REQUIRED]")
	computeCmd.Flags().StringVar(&computeSeason, "season", "", "season label (inferred from the month when empty)")
	computeCmd.Flags().StringVar(&computeTimeOfDay, "time-of-day", "", "time-of-day label (default mid)")
	computeCmd.Flags().StringVarP(&computeFormat, "format", "f", "text", "output format (text, json)")

	_ = computeCmd.MarkFlagRequired("state")
	_ = computeCmd.MarkFlagRequired("units")
}

func runCompute(cmd *cobra.Command, args []string) error {
	units, err := decimal.NewFromString(strings.TrimSpace(computeUnits))
	if err != nil {
		return errors.InvalidArgument("units %q is not a number", computeUnits)
	}

	bc := tariff.BillingContext{
		Jurisdiction: computeState,
		Category:     computeCategory,
		Season:       computeSeason,
		TimeOfDay:    computeTimeOfDay,
	}

	return withApp(cmd.Context(), func(a *app.App) error {
		b, err := a.Engine.ComputeBill(cmd.Context(), units, bc)
		if err != nil {
			return err
		}
		switch strings.ToLower(computeFormat) {
		case "json":
			return writeJSON(cmd.OutOrStdout(), b)
		case "text", "":
			printBreakdown(cmd.OutOrStdout(), b)
			return nil
		default:
			return errors.InvalidArgument("unknown format %q", computeFormat)
		}
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBreakdown(out io.Writer, b *tariff.Breakdown) {
	fmt.Fprintf(out, "%s / %s: %s units\n\n", b.Jurisdiction, b.Category, b.Units.String())

	if len(b.Slabs) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "FROM\tUP TO\tUNITS\tRATE\tAMOUNT\t")
		for _, s := range b.Slabs {
			upto := "-"
			if s.UpTo != nil {
				upto = s.UpTo.String()
			}
			mark := ""
			if s.Overflow {
				mark = " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s%s\t\n",
				s.From.String(), upto, s.Units.String(), s.Rate.String(), s.Amount.StringFixed(2), mark)
		}
		w.Flush()
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Base amount:   %s\n", b.BaseAmount.StringFixed(2))
	fmt.Fprintf(out, "Season:        %s x%s\n", b.Season, b.SeasonFactor.String())
	fmt.Fprintf(out, "Time of day:   %s x%s\n", b.TimeOfDay, b.TimeOfDayFactor.String())
	fmt.Fprintf(out, "Fixed charge:  %s\n", b.FixedCharge.StringFixed(2))
	fmt.Fprintf(out, "Total:         %s\n", b.TotalAmount.StringFixed(2))
	if b.Overflow {
		fmt.Fprintln(out, "\n* units beyond the last slab were billed at its rate")
	}
}
