package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

const redisPrefix = "geocode:"

// RedisStore keeps JSON encoded results under "geocode:<key>" with no TTL.
type RedisStore struct {
	client *redis.Client
}

// OpenRedis parses url, connects, and pings.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStore(client), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (geocoding.Result, bool, error) {
	raw, err := s.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return geocoding.Result{}, false, nil
	}
	if err != nil {
		return geocoding.Result{}, false, fmt.Errorf("reading geocode cache: %w", err)
	}

	var r geocoding.Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return geocoding.Result{}, false, fmt.Errorf("decoding cached result: %w", err)
	}
	return r, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, r geocoding.Result) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisPrefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("writing geocode cache: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		return fmt.Errorf("deleting geocode cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
