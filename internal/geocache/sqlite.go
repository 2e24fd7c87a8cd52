// Package geocache persists geocoding results keyed by normalised address.
// Entries never expire: addresses do not move.
package geocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	cache_key         TEXT PRIMARY KEY,
	formatted_address TEXT NOT NULL,
	lat               REAL NOT NULL,
	lon               REAL NOT NULL,
	state             TEXT NOT NULL,
	postcode          TEXT NOT NULL,
	locality          TEXT NOT NULL,
	quality           TEXT NOT NULL,
	is_fallback_match INTEGER NOT NULL,
	query_used        TEXT NOT NULL,
	result_types      TEXT NOT NULL,
	updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore is the default file-backed cache.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the cache database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}
	// One writer; concurrent callers queue on the pool instead of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating geocode_cache table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (geocoding.Result, bool, error) {
	var (
		r        geocoding.Result
		quality  string
		fallback int
		types    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT formatted_address, lat, lon, state, postcode, locality, quality,
		       is_fallback_match, query_used, result_types
		FROM geocode_cache WHERE cache_key = ?`, key).
		Scan(&r.FormattedAddress, &r.Lat, &r.Lon, &r.State, &r.Postcode, &r.Locality,
			&quality, &fallback, &r.QueryUsed, &types)
	if errors.Is(err, sql.ErrNoRows) {
		return geocoding.Result{}, false, nil
	}
	if err != nil {
		return geocoding.Result{}, false, fmt.Errorf("reading geocode cache: %w", err)
	}

	r.Quality = geocoding.Quality(quality)
	r.IsFallbackMatch = fallback != 0
	if types != "" {
		if err := json.Unmarshal([]byte(types), &r.ResultTypes); err != nil {
			return geocoding.Result{}, false, fmt.Errorf("decoding result_types: %w", err)
		}
	}
	return r, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, r geocoding.Result) error {
	types, err := json.Marshal(r.ResultTypes)
	if err != nil {
		return err
	}
	fallback := 0
	if r.IsFallbackMatch {
		fallback = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (cache_key, formatted_address, lat, lon, state, postcode,
			locality, quality, is_fallback_match, query_used, result_types, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cache_key) DO UPDATE SET
			formatted_address = excluded.formatted_address,
			lat = excluded.lat,
			lon = excluded.lon,
			state = excluded.state,
			postcode = excluded.postcode,
			locality = excluded.locality,
			quality = excluded.quality,
			is_fallback_match = excluded.is_fallback_match,
			query_used = excluded.query_used,
			result_types = excluded.result_types,
			updated_at = CURRENT_TIMESTAMP`,
		key, r.FormattedAddress, r.Lat, r.Lon, r.State, r.Postcode, r.Locality,
		string(r.Quality), fallback, r.QueryUsed, string(types))
	if err != nil {
		return fmt.Errorf("writing geocode cache: %w", err)
	}
	return nil
}

// Delete removes one entry. Missing keys are not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM geocode_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("deleting geocode cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
