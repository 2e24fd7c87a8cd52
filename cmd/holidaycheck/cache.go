package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EmpoweredVote/address-holidays/internal/geocache"
	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the geocode cache",
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict <address>...",
	Short: "Delete cached geocodes so the next lookup asks the provider again",
	Long: `Evict removes the cache entry for each address. Addresses are
normalised the same way lookups normalise them, so case and spacing do not
matter.

Example:
  holidaycheck cache evict "15 Sydney Rd, Brunswick VIC 3056"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCacheEvict,
}

func init() {
	cacheCmd.AddCommand(cacheEvictCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheEvict(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(false)
	if err != nil {
		return err
	}

	store, err := geocache.Open(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, addr := range args {
		key := geocoding.NormalizeKey(addr)
		if key == "" {
			continue
		}
		if err := store.Delete(cmd.Context(), key); err != nil {
			return fmt.Errorf("evicting %q: %w", addr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted cache for %q\n", key)
	}
	return nil
}
