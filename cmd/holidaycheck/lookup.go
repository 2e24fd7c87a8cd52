package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/EmpoweredVote/address-holidays/internal/lookup"
)

var (
	lookupYear       int
	lookupStart      string
	lookupEnd        string
	lookupRestricted bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Look up the public holidays for one address",
	Long: `Lookup geocodes an address, resolves its LGA and prints the full
audited result as JSON.

Examples:
  holidaycheck lookup "Federation Square, Melbourne VIC 3000"
  holidaycheck lookup "15 Sydney Rd, Brunswick VIC 3056" --start 2025-04-18 --end 2025-04-21`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().IntVarP(&lookupYear, "year", "y", time.Now().Year(), "Holiday year")
	lookupCmd.Flags().StringVar(&lookupStart, "start", "", "Pay period start (YYYY-MM-DD)")
	lookupCmd.Flags().StringVar(&lookupEnd, "end", "", "Pay period end (YYYY-MM-DD)")
	lookupCmd.Flags().BoolVar(&lookupRestricted, "include-restricted", false, "Include public-service and banking-only regional holidays")
}

func runLookup(cmd *cobra.Command, args []string) error {
	start, err := parseDateFlag("start", lookupStart)
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", lookupEnd)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Service.Lookup(cmd.Context(), lookup.Request{
		Address:           strings.Join(args, " "),
		Year:              lookupYear,
		Start:             start,
		End:               end,
		IncludeRestricted: lookupRestricted,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func parseDateFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (want YYYY-MM-DD)", name, v)
	}
	return t, nil
}
