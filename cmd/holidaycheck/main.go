// Command holidaycheck is the operator CLI: single lookups, CSV batches,
// geocode cache eviction and regional rules validation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/app"
	"github.com/EmpoweredVote/address-holidays/internal/config"
	"github.com/EmpoweredVote/address-holidays/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "holidaycheck",
	Short:         "Resolve Australian addresses to the public holidays that apply there",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load(".env.local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the logger. validate is skipped
// by commands that never call the geocoder.
func loadConfig(validate bool) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return cfg, nil, err
		}
	}
	return cfg, logger.New(cfg.Env), nil
}

func buildApp(ctx context.Context) (*app.App, error) {
	cfg, log, err := loadConfig(true)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, log)
}
