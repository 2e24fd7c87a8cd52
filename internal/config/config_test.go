package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HOLIDAYS_CONFIG_FILE", "ENV", "PORT", "GOOGLE_MAPS_API_KEY", "GEOCODE_TIMEOUT",
		"GEOCODE_RATE_PER_SEC", "HOLIDAY_API_BASE", "HOLIDAY_TIMEOUT", "LGA_ARTIFACT_PATH",
		"LGA_NAME_PROPERTY", "LGA_STATE_PROPERTY", "REGIONAL_RULES_DIR", "GEOCODE_CACHE_BACKEND",
		"GEOCODE_CACHE_PATH", "DATABASE_URL", "REDIS_URL", "BATCH_WORKERS", "API_TOKEN_HASH",
		"CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.CacheBackend != CacheSQLite {
		t.Errorf("CacheBackend = %q, want sqlite", cfg.CacheBackend)
	}
	if cfg.GeocodeTimeout != DefaultTimeout || cfg.HolidayTimeout != DefaultTimeout {
		t.Errorf("timeouts = %v/%v, want %v", cfg.GeocodeTimeout, cfg.HolidayTimeout, DefaultTimeout)
	}
	if cfg.BatchWorkers != DefaultBatchWorkers {
		t.Errorf("BatchWorkers = %d", cfg.BatchWorkers)
	}
	if !errors.Is(cfg.Validate(), ErrMissingGoogleKey) {
		t.Errorf("Validate without key should fail with ErrMissingGoogleKey")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_MAPS_API_KEY", "k")
	t.Setenv("GEOCODE_TIMEOUT", "3s")
	t.Setenv("BATCH_WORKERS", "9")
	t.Setenv("GEOCODE_CACHE_BACKEND", "REDIS")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeocodeTimeout != 3*time.Second {
		t.Errorf("GeocodeTimeout = %v", cfg.GeocodeTimeout)
	}
	if cfg.BatchWorkers != 9 {
		t.Errorf("BatchWorkers = %d", cfg.BatchWorkers)
	}
	if cfg.CacheBackend != CacheRedis {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"BATCH_WORKERS":        "0",
		"GEOCODE_TIMEOUT":      "soon",
		"GEOCODE_RATE_PER_SEC": "-1",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestLoadYAMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "holidays.yaml")
	body := `
google_maps_api_key: from-file
holiday_timeout: 7s
geocode_cache_backend: postgres
database_url: postgres://localhost/holidays
regional_rules_dir: /srv/rules
cors_allowed_origins:
  - https://payroll.example.com
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOLIDAYS_CONFIG_FILE", path)
	t.Setenv("REGIONAL_RULES_DIR", "/env/rules")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GoogleMapsAPIKey != "from-file" {
		t.Errorf("GoogleMapsAPIKey = %q", cfg.GoogleMapsAPIKey)
	}
	if cfg.HolidayTimeout != 7*time.Second {
		t.Errorf("HolidayTimeout = %v", cfg.HolidayTimeout)
	}
	if cfg.RegionalRulesDir != "/env/rules" {
		t.Errorf("env should override file, got %q", cfg.RegionalRulesDir)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "https://payroll.example.com" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateBackends(t *testing.T) {
	cfg := Default()
	cfg.GoogleMapsAPIKey = "k"

	cfg.CacheBackend = CachePostgres
	if !errors.Is(cfg.Validate(), ErrMissingDatabaseURL) {
		t.Error("postgres without DATABASE_URL should fail")
	}
	cfg.CacheBackend = CacheRedis
	if !errors.Is(cfg.Validate(), ErrMissingRedisURL) {
		t.Error("redis without REDIS_URL should fail")
	}
	cfg.CacheBackend = "memcached"
	if !errors.Is(cfg.Validate(), ErrUnknownBackend) {
		t.Error("unknown backend should fail")
	}
}
