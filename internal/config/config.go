// Package config loads runtime configuration from an optional YAML file and
// the environment. Environment variables always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// CacheBackend identifies which store backs the geocode cache.
type CacheBackend string

const (
	CacheSQLite   CacheBackend = "sqlite"
	CachePostgres CacheBackend = "postgres"
	CacheRedis    CacheBackend = "redis"
)

// Defaults.
const (
	DefaultPort             = "5050"
	DefaultHolidayAPIBase   = "https://date.nager.at/api/v3"
	DefaultLGAArtifactPath  = "data/lga_2025_simplified.geojson"
	DefaultLGANameProperty  = "LGA_NAME_2025"
	DefaultLGAStateProperty = "state"
	DefaultRegionalRulesDir = "data"
	DefaultCachePath        = "cache/geocode_cache.db"
	DefaultTimeout          = 20 * time.Second
	DefaultGeocodeRate      = 10.0
	DefaultBatchWorkers     = 4
)

// Common errors
var (
	ErrMissingGoogleKey   = errors.New("GOOGLE_MAPS_API_KEY environment variable is required")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres geocode cache")
	ErrMissingRedisURL    = errors.New("REDIS_URL is required for the redis geocode cache")
	ErrUnknownBackend     = errors.New("unknown geocode cache backend")
)

// Config holds everything the resolver, the HTTP server and the CLI need.
type Config struct {
	Env  string
	Port string

	GoogleMapsAPIKey  string
	GeocodeTimeout    time.Duration
	GeocodeRatePerSec float64

	HolidayAPIBase string
	HolidayTimeout time.Duration

	LGAArtifactPath  string
	LGANameProperty  string
	LGAStateProperty string

	RegionalRulesDir string

	CacheBackend CacheBackend
	CachePath    string
	DatabaseURL  string
	RedisURL     string

	BatchWorkers int

	// APITokenHash is a bcrypt hash; empty disables bearer auth on the HTTP API.
	APITokenHash       string
	CORSAllowedOrigins []string
}

// fileConfig mirrors the YAML overlay. Durations are strings ("20s").
type fileConfig struct {
	Env                string   `yaml:"env"`
	Port               string   `yaml:"port"`
	GoogleMapsAPIKey   string   `yaml:"google_maps_api_key"`
	GeocodeTimeout     string   `yaml:"geocode_timeout"`
	GeocodeRatePerSec  float64  `yaml:"geocode_rate_per_sec"`
	HolidayAPIBase     string   `yaml:"holiday_api_base"`
	HolidayTimeout     string   `yaml:"holiday_timeout"`
	LGAArtifactPath    string   `yaml:"lga_artifact_path"`
	LGANameProperty    string   `yaml:"lga_name_property"`
	LGAStateProperty   string   `yaml:"lga_state_property"`
	RegionalRulesDir   string   `yaml:"regional_rules_dir"`
	CacheBackend       string   `yaml:"geocode_cache_backend"`
	CachePath          string   `yaml:"geocode_cache_path"`
	DatabaseURL        string   `yaml:"database_url"`
	RedisURL           string   `yaml:"redis_url"`
	BatchWorkers       int      `yaml:"batch_workers"`
	APITokenHash       string   `yaml:"api_token_hash"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Env:               "development",
		Port:              DefaultPort,
		GeocodeTimeout:    DefaultTimeout,
		GeocodeRatePerSec: DefaultGeocodeRate,
		HolidayAPIBase:    DefaultHolidayAPIBase,
		HolidayTimeout:    DefaultTimeout,
		LGAArtifactPath:   DefaultLGAArtifactPath,
		LGANameProperty:   DefaultLGANameProperty,
		LGAStateProperty:  DefaultLGAStateProperty,
		RegionalRulesDir:  DefaultRegionalRulesDir,
		CacheBackend:      CacheSQLite,
		CachePath:         DefaultCachePath,
		BatchWorkers:      DefaultBatchWorkers,
	}
}

// Load builds a Config from defaults, the YAML file named by
// HOLIDAYS_CONFIG_FILE (if any), then environment variables.
//
// Environment variables:
//   - ENV, PORT
//   - GOOGLE_MAPS_API_KEY, GEOCODE_TIMEOUT, GEOCODE_RATE_PER_SEC
//   - HOLIDAY_API_BASE, HOLIDAY_TIMEOUT
//   - LGA_ARTIFACT_PATH, LGA_NAME_PROPERTY, LGA_STATE_PROPERTY
//   - REGIONAL_RULES_DIR
//   - GEOCODE_CACHE_BACKEND (sqlite|postgres|redis), GEOCODE_CACHE_PATH, DATABASE_URL, REDIS_URL
//   - BATCH_WORKERS
//   - API_TOKEN_HASH, CORS_ALLOWED_ORIGINS (comma separated)
func Load() (Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("HOLIDAYS_CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&c.Env, fc.Env)
	setString(&c.Port, fc.Port)
	setString(&c.GoogleMapsAPIKey, fc.GoogleMapsAPIKey)
	setString(&c.HolidayAPIBase, fc.HolidayAPIBase)
	setString(&c.LGAArtifactPath, fc.LGAArtifactPath)
	setString(&c.LGANameProperty, fc.LGANameProperty)
	setString(&c.LGAStateProperty, fc.LGAStateProperty)
	setString(&c.RegionalRulesDir, fc.RegionalRulesDir)
	setString(&c.CachePath, fc.CachePath)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.RedisURL, fc.RedisURL)
	setString(&c.APITokenHash, fc.APITokenHash)
	if fc.CacheBackend != "" {
		c.CacheBackend = CacheBackend(strings.ToLower(fc.CacheBackend))
	}
	if fc.GeocodeRatePerSec > 0 {
		c.GeocodeRatePerSec = fc.GeocodeRatePerSec
	}
	if fc.BatchWorkers > 0 {
		c.BatchWorkers = fc.BatchWorkers
	}
	if len(fc.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.CORSAllowedOrigins
	}
	if err := setDuration(&c.GeocodeTimeout, "geocode_timeout", fc.GeocodeTimeout); err != nil {
		return err
	}
	return setDuration(&c.HolidayTimeout, "holiday_timeout", fc.HolidayTimeout)
}

func (c *Config) applyEnv() error {
	setString(&c.Env, env("ENV"))
	setString(&c.Port, env("PORT"))
	setString(&c.GoogleMapsAPIKey, env("GOOGLE_MAPS_API_KEY"))
	setString(&c.HolidayAPIBase, env("HOLIDAY_API_BASE"))
	setString(&c.LGAArtifactPath, env("LGA_ARTIFACT_PATH"))
	setString(&c.LGANameProperty, env("LGA_NAME_PROPERTY"))
	setString(&c.LGAStateProperty, env("LGA_STATE_PROPERTY"))
	setString(&c.RegionalRulesDir, env("REGIONAL_RULES_DIR"))
	setString(&c.CachePath, env("GEOCODE_CACHE_PATH"))
	setString(&c.DatabaseURL, env("DATABASE_URL"))
	setString(&c.RedisURL, env("REDIS_URL"))
	setString(&c.APITokenHash, env("API_TOKEN_HASH"))

	if v := env("GEOCODE_CACHE_BACKEND"); v != "" {
		c.CacheBackend = CacheBackend(strings.ToLower(v))
	}
	if v := env("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	if v := env("GEOCODE_RATE_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("GEOCODE_RATE_PER_SEC must be a positive number, got %q", v)
		}
		c.GeocodeRatePerSec = f
	}
	if v := env("BATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("BATCH_WORKERS must be a positive integer, got %q", v)
		}
		c.BatchWorkers = n
	}
	if err := setDuration(&c.GeocodeTimeout, "GEOCODE_TIMEOUT", env("GEOCODE_TIMEOUT")); err != nil {
		return err
	}
	return setDuration(&c.HolidayTimeout, "HOLIDAY_TIMEOUT", env("HOLIDAY_TIMEOUT"))
}

// Validate checks the settings needed to run lookups.
func (c Config) Validate() error {
	if c.GoogleMapsAPIKey == "" {
		return ErrMissingGoogleKey
	}
	switch c.CacheBackend {
	case CacheSQLite:
	case CachePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case CacheRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.CacheBackend)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("%s must be a positive duration, got %q", name, v)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
