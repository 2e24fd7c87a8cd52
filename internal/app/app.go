// Package app assembles the lookup service from configuration. The HTTP
// server and the CLI share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/config"
	"github.com/EmpoweredVote/address-holidays/internal/geocache"
	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
	"github.com/EmpoweredVote/address-holidays/internal/holidays"
	"github.com/EmpoweredVote/address-holidays/internal/jurisdiction"
	"github.com/EmpoweredVote/address-holidays/internal/lookup"
	"github.com/EmpoweredVote/address-holidays/internal/regional"
)

type App struct {
	Config  config.Config
	Log     *zap.Logger
	Cache   *geocache.Memo
	Areas   *jurisdiction.Resolver
	Rules   *regional.Loader
	Service *lookup.Service
}

// Build opens the geocode cache, loads the LGA artifact and wires the
// lookup service. Call Close when done.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	client, err := geocoding.NewClient(geocoding.Options{
		APIKey:     cfg.GoogleMapsAPIKey,
		Timeout:    cfg.GeocodeTimeout,
		RatePerSec: cfg.GeocodeRatePerSec,
	})
	if err != nil {
		return nil, err
	}

	areas, err := jurisdiction.Load(cfg.LGAArtifactPath, jurisdiction.Options{
		NameProperty:  cfg.LGANameProperty,
		StateProperty: cfg.LGAStateProperty,
	}, log.Named("jurisdiction"))
	if err != nil {
		return nil, fmt.Errorf("loading LGA artifact: %w", err)
	}

	cache, err := geocache.Open(ctx, cfg, log.Named("geocache"))
	if err != nil {
		return nil, fmt.Errorf("opening geocode cache: %w", err)
	}

	nager := holidays.NewClient(holidays.Options{
		BaseURL: cfg.HolidayAPIBase,
		Timeout: cfg.HolidayTimeout,
	}, log.Named("holidays"))
	rules := regional.NewLoader(cfg.RegionalRulesDir, log.Named("regional"))

	svc := lookup.NewService(
		geocoding.NewGeocoder(client, cache, log.Named("geocoder")),
		areas, nager, rules, log.Named("lookup"),
	)

	return &App{
		Config:  cfg,
		Log:     log,
		Cache:   cache,
		Areas:   areas,
		Rules:   rules,
		Service: svc,
	}, nil
}

func (a *App) Close() error {
	return a.Cache.Close()
}
