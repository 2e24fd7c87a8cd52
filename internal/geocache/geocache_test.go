package geocache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/EmpoweredVote/address-holidays/internal/config"
	"github.com/EmpoweredVote/address-holidays/internal/db"
	"github.com/EmpoweredVote/address-holidays/internal/geocoding"
)

func sample() geocoding.Result {
	return geocoding.Result{
		FormattedAddress: "Federation Square, Melbourne VIC 3000, Australia",
		Lat:              -37.8179789,
		Lon:              144.9690576,
		State:            "VIC",
		Postcode:         "3000",
		Locality:         "Melbourne",
		Quality:          geocoding.QualityRooftop,
		QueryUsed:        "Federation Square, Melbourne VIC",
		ResultTypes:      []string{"establishment", "point_of_interest"},
	}
}

// exerciseStore runs the shared contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := geocoding.NormalizeKey("Federation Square, Melbourne VIC")

	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("cold Get = ok:%v err:%v, want miss", ok, err)
	}

	want := sample()
	if err := s.Put(ctx, key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get after Put = ok:%v err:%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	// Overwrite is idempotent and replaces the previous value.
	want.IsFallbackMatch = true
	want.QueryUsed = "Melbourne VIC"
	if err := s.Put(ctx, key, want); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, _, _ = s.Get(ctx, key)
	if !got.IsFallbackMatch || got.QueryUsed != "Melbourne VIC" {
		t.Errorf("overwrite not applied: %+v", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, key); ok {
		t.Error("entry still present after Delete")
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache", "geocode.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "geocode.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", sample()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get after reopen = ok:%v err:%v", ok, err)
	}
	if got.State != "VIC" {
		t.Errorf("State = %q", got.State)
	}
}

func TestSQLiteStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "geocode.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Put(ctx, "same", sample()); err != nil {
				t.Errorf("Put: %v", err)
			}
			if _, _, err := s.Get(ctx, "same"); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	gdb, err := db.Connect(dsn, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	s, err := NewPostgresStore(context.Background(), gdb)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	s, err := OpenRedis(context.Background(), url)
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

type countingStore struct {
	mu     sync.Mutex
	m      map[string]geocoding.Result
	gets   int
	putErr error
}

func (c *countingStore) Get(_ context.Context, key string) (geocoding.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.m[key]
	return r, ok, nil
}

func (c *countingStore) Put(_ context.Context, key string, r geocoding.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	c.m[key] = r
	return nil
}

func (c *countingStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *countingStore) Close() error { return nil }

func TestMemoReadThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{m: map[string]geocoding.Result{"k": sample()}}
	m := NewMemo(backend, 0)

	for i := 0; i < 3; i++ {
		if _, ok, err := m.Get(ctx, "k"); err != nil || !ok {
			t.Fatalf("Get = ok:%v err:%v", ok, err)
		}
	}
	if backend.gets != 1 {
		t.Errorf("backend hit %d times, want 1", backend.gets)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("Delete did not evict memory layer")
	}
}

func TestMemoPutKeepsMemoryOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	backend := &countingStore{m: map[string]geocoding.Result{}, putErr: boom}
	m := NewMemo(backend, 0)

	if err := m.Put(ctx, "k", sample()); !errors.Is(err, boom) {
		t.Fatalf("Put err = %v, want %v", err, boom)
	}
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Error("memory layer should still serve the entry")
	}
	if backend.gets != 0 {
		t.Errorf("backend consulted %d times", backend.gets)
	}
}

func TestMemoSeesEvictionFromAnotherProcess(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "geocode.db")

	open := func() *Memo {
		s, err := OpenSQLite(ctx, path)
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		m := NewMemo(s, 50*time.Millisecond)
		t.Cleanup(func() { m.Close() })
		return m
	}
	server, cli := open(), open()

	if err := server.Put(ctx, "k", sample()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := cli.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if _, ok, err := server.Get(ctx, "k"); err != nil || ok {
		t.Errorf("server Get after eviction = ok:%v err:%v, want miss", ok, err)
	}
}

func TestOpenSQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.CachePath = filepath.Join(t.TempDir(), "geocode.db")

	m, err := Open(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()
	exerciseStore(t, m)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.CacheBackend = "memcached"
	if _, err := Open(context.Background(), cfg, zaptest.NewLogger(t)); !errors.Is(err, config.ErrUnknownBackend) {
		t.Fatalf("err = %v, want ErrUnknownBackend", err)
	}
}
