package geocache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

// Store is a durable cache backend.
type Store interface {
	geocoding.Cache
	Delete(ctx context.Context, key string) error
	Close() error
}

// Memo is an in-process read-through layer in front of a Store.
type Memo struct {
	mem  *cache.Cache
	next Store
}

// DefaultMemoTTL bounds how long a process serves an entry without asking
// the backend, so evictions made by other processes are seen.
const DefaultMemoTTL = 5 * time.Minute

// NewMemo wraps next with an in-memory layer whose entries expire after ttl.
// A non-positive ttl uses DefaultMemoTTL.
func NewMemo(next Store, ttl time.Duration) *Memo {
	if ttl <= 0 {
		ttl = DefaultMemoTTL
	}
	return &Memo{mem: cache.New(ttl, 2*ttl), next: next}
}

func (m *Memo) Get(ctx context.Context, key string) (geocoding.Result, bool, error) {
	if v, ok := m.mem.Get(key); ok {
		return v.(geocoding.Result), true, nil
	}
	r, ok, err := m.next.Get(ctx, key)
	if err != nil || !ok {
		return r, ok, err
	}
	m.mem.SetDefault(key, r)
	return r, true, nil
}

// Put stores r in memory and writes through to the backend. A backend
// failure is returned but the memory entry is kept.
func (m *Memo) Put(ctx context.Context, key string, r geocoding.Result) error {
	m.mem.SetDefault(key, r)
	return m.next.Put(ctx, key, r)
}

func (m *Memo) Delete(ctx context.Context, key string) error {
	m.mem.Delete(key)
	return m.next.Delete(ctx, key)
}

func (m *Memo) Close() error { return m.next.Close() }
