package cache_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/prevword/internal/cache"
	"github.com/DeafMist/prevword/internal/models"
)

var sample = models.RecordSet{
	{Date: "2024-01-05", Number: 10, Word: "SASSY"},
	{Date: "2024-01-04", Number: 9, Word: "BUGGY"},
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestExactDatePolicy(t *testing.T) {
	ctx := context.Background()
	c := cache.New(cache.NewMemoryStore(), "words", cache.ExactDate(), nil)

	_, ok, err := c.Get(ctx, "2024-01-05")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, sample))

	got, ok, err := c.Get(ctx, "2024-01-05")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sample, got)

	_, ok, err = c.Get(ctx, "2024-01-06")
	require.NoError(t, err)
	require.False(t, ok)

	// older target dates are present but not the newest record
	_, ok, err = c.Get(ctx, "2024-01-04")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMaxAgePolicyBoundary(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.UnixMilli(1_700_000_000_000)}
	maxAge := 6 * time.Hour
	c := cache.New(cache.NewMemoryStore(), "words", cache.MaxAge(maxAge), nil, cache.WithClock(clk.now))

	require.NoError(t, c.Set(ctx, sample))

	clk.t = clk.t.Add(maxAge)
	got, ok, err := c.Get(ctx, "2030-01-01")
	require.NoError(t, err)
	require.True(t, ok, "age equal to max age is still fresh")
	require.Equal(t, sample, got)

	clk.t = clk.t.Add(time.Millisecond)
	_, ok, err = c.Get(ctx, "2030-01-01")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMaxAgePolicyFutureEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	now := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, store.Save(ctx, "words", models.CacheEntry{
		RetrievedAt: now.Add(time.Minute).UnixMilli(),
		Records:     sample,
	}))

	c := cache.New(store, "words", cache.MaxAge(time.Hour), nil, cache.WithClock(func() time.Time { return now }))
	_, ok, err := c.Get(ctx, "2024-01-05")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	c := cache.New(store, "words", cache.ExactDate(), nil)

	require.NoError(t, c.Set(ctx, sample))
	next := models.RecordSet{{Date: "2024-01-06", Number: 11, Word: "CRANE"}}
	require.NoError(t, c.Set(ctx, next))

	entry, err := store.Load(ctx, "words")
	require.NoError(t, err)
	require.Equal(t, next, entry.Records)
}

func TestSetRejectsEmpty(t *testing.T) {
	c := cache.New(cache.NewMemoryStore(), "words", cache.ExactDate(), nil)
	require.Error(t, c.Set(context.Background(), nil))
}

func TestEmptyStoredSetIsMiss(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "words", models.CacheEntry{RetrievedAt: time.Now().UnixMilli()}))

	c := cache.New(store, "words", cache.MaxAge(time.Hour), nil)
	_, ok, err := c.Get(ctx, "2024-01-05")
	require.NoError(t, err)
	require.False(t, ok)
}

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, string) (*models.CacheEntry, error) { return nil, f.err }
func (f failingStore) Save(context.Context, string, models.CacheEntry) error { return f.err }

func TestGetErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	c := cache.New(failingStore{err: boom}, "words", cache.ExactDate(), nil)
	_, _, err := c.Get(context.Background(), "2024-01-05")
	require.ErrorIs(t, err, boom)

	corrupt := cache.New(failingStore{err: cache.ErrCorrupt}, "words", cache.ExactDate(), nil)
	_, ok, err := corrupt.Get(context.Background(), "2024-01-05")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestParsePolicy(t *testing.T) {
	p, err := cache.ParsePolicy("exact", 0)
	require.NoError(t, err)
	require.Equal(t, cache.ExactDate(), p)

	p, err = cache.ParsePolicy("ttl", time.Hour)
	require.NoError(t, err)
	require.Equal(t, cache.MaxAge(time.Hour), p)
	require.Equal(t, "ttl(1h0m0s)", p.String())

	_, err = cache.ParsePolicy("ttl", 0)
	require.Error(t, err)
	_, err = cache.ParsePolicy("both", time.Hour)
	require.Error(t, err)
}

func TestEntryWireFormat(t *testing.T) {
	data, err := cache.EncodeEntry(models.CacheEntry{RetrievedAt: 42, Records: sample[:1]})
	require.NoError(t, err)
	require.JSONEq(t, `{"retrievedAt":42,"records":[{"date":"2024-01-05","number":10,"word":"SASSY"}]}`, string(data))

	_, err = cache.DecodeEntry([]byte("{not json"))
	require.ErrorIs(t, err, cache.ErrCorrupt)
}

func testStore(t *testing.T, store cache.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "previousWordleWords")
	require.ErrorIs(t, err, cache.ErrNotFound)

	first := models.CacheEntry{RetrievedAt: 1, Records: sample}
	require.NoError(t, store.Save(ctx, "previousWordleWords", first))

	got, err := store.Load(ctx, "previousWordleWords")
	require.NoError(t, err)
	require.Equal(t, first, *got)

	second := models.CacheEntry{RetrievedAt: 2, Records: sample[1:]}
	require.NoError(t, store.Save(ctx, "previousWordleWords", second))

	got, err = store.Load(ctx, "previousWordleWords")
	require.NoError(t, err)
	require.Equal(t, second, *got)

	if p, ok := store.(cache.Pinger); ok {
		require.NoError(t, p.Ping(ctx))
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, cache.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	store, err := cache.NewFileStore(dir)
	require.NoError(t, err)
	testStore(t, store)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	store, err := cache.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.json"), []byte("garbage"), 0o644))

	_, err = store.Load(context.Background(), "words")
	require.ErrorIs(t, err, cache.ErrCorrupt)
}

func TestSQLiteStore(t *testing.T) {
	store, err := cache.OpenSQLite(filepath.Join(t.TempDir(), "db", "cache.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	testStore(t, store)
}
