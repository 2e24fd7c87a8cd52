package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/EmpoweredVote/address-holidays/internal/batch"
)

var (
	batchOutput     string
	batchYear       int
	batchStart      string
	batchEnd        string
	batchWorkers    int
	batchRestricted bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <input.csv>",
	Short: "Run lookups for every row of an employee CSV",
	Long: `Batch reads employee_id, office_address, home_address, work_mode
(OFFICE or HOME) and optional year, start_date and end_date columns, and
writes one enriched row per input row.

Examples:
  holidaycheck batch batch_inputs/mixed_example.csv
  holidaycheck batch staff.csv -o results.csv --start 2025-04-01 --end 2025-04-30`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchOutput, "output", "o",
		filepath.Join("outputs", "public_holiday_run", "payroll_holiday_check_results.csv"), "Results CSV path")
	batchCmd.Flags().IntVarP(&batchYear, "year", "y", time.Now().Year(), "Default holiday year for rows without one")
	batchCmd.Flags().StringVar(&batchStart, "start", "", "Default pay period start (YYYY-MM-DD)")
	batchCmd.Flags().StringVar(&batchEnd, "end", "", "Default pay period end (YYYY-MM-DD)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent lookups (defaults to BATCH_WORKERS)")
	batchCmd.Flags().BoolVar(&batchRestricted, "include-restricted", false, "Include public-service and banking-only regional holidays")
}

func runBatch(cmd *cobra.Command, args []string) error {
	start, err := parseDateFlag("start", batchStart)
	if err != nil {
		return err
	}
	end, err := parseDateFlag("end", batchEnd)
	if err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	rows, err := batch.ReadRows(in)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	workers := batchWorkers
	if workers <= 0 {
		workers = a.Config.BatchWorkers
	}
	runner := batch.NewRunner(a.Service, batch.Options{
		Workers:           workers,
		Year:              batchYear,
		Start:             start,
		End:               end,
		IncludeRestricted: batchRestricted,
	}, a.Log.Named("batch"))

	began := time.Now()
	outs, err := runner.Run(cmd.Context(), rows)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(batchOutput), 0o755); err != nil {
		return err
	}
	out, err := os.Create(batchOutput)
	if err != nil {
		return err
	}
	if err := batch.WriteCSV(out, outs); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), batch.Summarise(outs, time.Since(began)))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote enriched results to: %s\n", batchOutput)
	return nil
}
