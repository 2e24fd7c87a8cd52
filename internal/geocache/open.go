package geocache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/EmpoweredVote/address-holidays/internal/config"
	"github.com/EmpoweredVote/address-holidays/internal/db"
)

// Open builds the backend selected by cfg.CacheBackend and wraps it in a Memo.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Memo, error) {
	var (
		store Store
		err   error
	)

	switch cfg.CacheBackend {
	case config.CacheSQLite, "":
		store, err = OpenSQLite(ctx, cfg.CachePath)
	case config.CachePostgres:
		gdb, cerr := db.Connect(cfg.DatabaseURL, log)
		if cerr != nil {
			return nil, cerr
		}
		store, err = NewPostgresStore(ctx, gdb)
		if err != nil {
			_ = db.Close(gdb)
		}
	case config.CacheRedis:
		store, err = OpenRedis(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.CacheBackend)
	}
	if err != nil {
		return nil, err
	}

	log.Info("geocode cache ready", zap.String("backend", string(cfg.CacheBackend)))
	return NewMemo(store, DefaultMemoTTL), nil
}
