package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/EmpoweredVote/address-holidays/internal/regional"
)

var rulesYear int

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect regional holiday rules",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check [file.csv]",
	Short: "Validate a regional rules CSV and report every problem row",
	Long: `Check parses a rules file the same way lookups do and prints each
skipped row and warning. It exits non-zero when the header is unusable or any
row was skipped.

Examples:
  holidaycheck rules check --year 2025
  holidaycheck rules check data/regional_holidays_2026.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesCheck,
}

func init() {
	rulesCheckCmd.Flags().IntVarP(&rulesYear, "year", "y", time.Now().Year(), "Year whose file under REGIONAL_RULES_DIR is checked")
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, _, err := loadConfig(false)
		if err != nil {
			return err
		}
		path = regional.NewLoader(cfg.RegionalRulesDir, nil).Path(rulesYear)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rules, diags, err := regional.Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	skipped := 0
	for _, d := range diags {
		kind := "warning"
		if d.Skipped {
			kind = "skipped"
			skipped++
		}
		fmt.Fprintf(out, "%s: %s %s\n", path, kind, d.Error())
	}
	fmt.Fprintf(out, "%s: %d rules, %d rows skipped, %d warnings\n", path, len(rules), skipped, len(diags)-skipped)

	if skipped > 0 {
		return fmt.Errorf("%d invalid rows in %s", skipped, path)
	}
	return nil
}
