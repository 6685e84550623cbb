package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/DeafMist/prevword/internal/models"
)

var (
	// ErrNotFound is returned by a Store when no entry exists for the key.
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorrupt wraps a stored entry that cannot be decoded.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// Store persists one encoded CacheEntry per key. Save must replace the whole entry
// atomically; readers never see a partially written value.
type Store interface {
	Load(ctx context.Context, key string) (*models.CacheEntry, error)
	Save(ctx context.Context, key string, entry models.CacheEntry) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EncodeEntry renders the persisted JSON form of entry.
func EncodeEntry(entry models.CacheEntry) ([]byte, error) {
	if entry.Records == nil {
		entry.Records = models.RecordSet{}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return data, nil
}

// DecodeEntry parses the persisted JSON form; failures wrap ErrCorrupt.
func DecodeEntry(data []byte) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &entry, nil
}

// MemoryStore keeps encoded entries in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, key string) (*models.CacheEntry, error) {
	m.mu.Lock()
	data, ok := m.items[key]
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return DecodeEntry(data)
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, key string, entry models.CacheEntry) error {
	data, err := EncodeEntry(entry)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, key string) (*models.CacheEntry, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	return DecodeEntry(data)
}

// Save implements Store. The entry is written to a temp file and renamed into place.
func (f *FileStore) Save(_ context.Context, key string, entry models.CacheEntry) error {
	data, err := EncodeEntry(entry)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// Ping implements Pinger by checking the directory is still there.
func (f *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	return nil
}
