package geocache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/EmpoweredVote/address-holidays/internal/db"
	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

// Entry is the Postgres row for one cached result.
type Entry struct {
	CacheKey         string         `gorm:"primaryKey;column:cache_key"`
	FormattedAddress string         `gorm:"not null"`
	Lat              float64        `gorm:"not null"`
	Lon              float64        `gorm:"not null"`
	State            string         `gorm:"not null"`
	Postcode         string         `gorm:"not null"`
	Locality         string         `gorm:"not null"`
	Quality          string         `gorm:"not null"`
	IsFallbackMatch  bool           `gorm:"not null"`
	QueryUsed        string         `gorm:"not null"`
	ResultTypes      pq.StringArray `gorm:"type:text[]"`
	UpdatedAt        time.Time
}

func (Entry) TableName() string { return db.Schema + ".geocode_cache" }

func entryFromResult(key string, r geocoding.Result) Entry {
	return Entry{
		CacheKey:         key,
		FormattedAddress: r.FormattedAddress,
		Lat:              r.Lat,
		Lon:              r.Lon,
		State:            r.State,
		Postcode:         r.Postcode,
		Locality:         r.Locality,
		Quality:          string(r.Quality),
		IsFallbackMatch:  r.IsFallbackMatch,
		QueryUsed:        r.QueryUsed,
		ResultTypes:      pq.StringArray(r.ResultTypes),
	}
}

func (e Entry) result() geocoding.Result {
	return geocoding.Result{
		FormattedAddress: e.FormattedAddress,
		Lat:              e.Lat,
		Lon:              e.Lon,
		State:            e.State,
		Postcode:         e.Postcode,
		Locality:         e.Locality,
		Quality:          geocoding.Quality(e.Quality),
		IsFallbackMatch:  e.IsFallbackMatch,
		QueryUsed:        e.QueryUsed,
		ResultTypes:      []string(e.ResultTypes),
	}
}

// PostgresStore keeps the cache in holidays.geocode_cache.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore migrates the cache table on d.
func NewPostgresStore(ctx context.Context, d *gorm.DB) (*PostgresStore, error) {
	if err := db.EnsureSchema(d.WithContext(ctx), db.Schema); err != nil {
		return nil, fmt.Errorf("ensuring schema %s: %w", db.Schema, err)
	}
	if err := d.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrating geocode_cache: %w", err)
	}
	return &PostgresStore{db: d}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (geocoding.Result, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return geocoding.Result{}, false, nil
	}
	if err != nil {
		return geocoding.Result{}, false, fmt.Errorf("reading geocode cache: %w", err)
	}
	return e.result(), true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, r geocoding.Result) error {
	e := entryFromResult(key, r)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		UpdateAll: true,
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("writing geocode cache: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("deleting geocode cache entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return db.Close(s.db) }
