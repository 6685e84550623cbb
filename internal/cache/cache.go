// Package cache decides whether a persisted record set is still usable.
//
// One validity policy applies per deployment: PolicyExactDate treats the entry as
// fresh when its newest record is the target date; PolicyMaxAge treats it as fresh
// while its age is within MaxAge (inclusive, millisecond precision).
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
)

// PolicyKind names a cache validity policy.
type PolicyKind string

const (
	PolicyExactDate PolicyKind = "exact"
	PolicyMaxAge    PolicyKind = "ttl"
)

// Policy is the validity rule applied by Get.
type Policy struct {
	Kind   PolicyKind
	MaxAge time.Duration
}

// ExactDate returns the newest-record-matches-target policy.
func ExactDate() Policy {
	return Policy{Kind: PolicyExactDate}
}

// MaxAge returns the wall-clock TTL policy.
func MaxAge(d time.Duration) Policy {
	return Policy{Kind: PolicyMaxAge, MaxAge: d}
}

// ParsePolicy builds a Policy from configuration values.
func ParsePolicy(kind string, maxAge time.Duration) (Policy, error) {
	switch PolicyKind(kind) {
	case PolicyExactDate:
		return ExactDate(), nil
	case PolicyMaxAge:
		if maxAge <= 0 {
			return Policy{}, fmt.Errorf("cache policy %q needs a positive max age", kind)
		}
		return MaxAge(maxAge), nil
	default:
		return Policy{}, fmt.Errorf("unknown cache policy %q", kind)
	}
}

func (p Policy) String() string {
	if p.Kind == PolicyMaxAge {
		return fmt.Sprintf("%s(%s)", p.Kind, p.MaxAge)
	}
	return string(p.Kind)
}

// Cache reads and replaces the single record-set entry stored under key.
// It holds no state of its own between calls.
type Cache struct {
	store  Store
	key    string
	policy Policy
	now    func() time.Time
	log    *slog.Logger
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over store.
func New(store Store, key string, policy Policy, log *slog.Logger, opts ...Option) *Cache {
	log = logger.OrDiscard(log)
	c := &Cache{
		store:  store,
		key:    key,
		policy: policy,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the store key the cache reads and writes.
func (c *Cache) Key() string { return c.key }

// Policy returns the configured validity policy.
func (c *Cache) Policy() Policy { return c.policy }

// Get returns the stored set when it is usable for targetDate. A missing or
// undecodable entry is a miss, not an error.
func (c *Cache) Get(ctx context.Context, targetDate string) (models.RecordSet, bool, error) {
	entry, err := c.store.Load(ctx, c.key)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, false, nil
	case errors.Is(err, ErrCorrupt):
		c.log.Warn("ignoring unreadable cache entry", slog.String("key", c.key), slog.Any("err", err))
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load cache entry: %w", err)
	}

	newest, ok := entry.Records.Newest()
	if !ok {
		return nil, false, nil
	}

	switch c.policy.Kind {
	case PolicyExactDate:
		if newest.Date != targetDate {
			return nil, false, nil
		}
	case PolicyMaxAge:
		age := c.now().UnixMilli() - entry.RetrievedAt
		if age < 0 {
			c.log.Warn("cache entry retrieved in the future, treating as stale",
				slog.String("key", c.key), slog.Int64("retrieved_at", entry.RetrievedAt))
			return nil, false, nil
		}
		if age > c.policy.MaxAge.Milliseconds() {
			return nil, false, nil
		}
	default:
		return nil, false, fmt.Errorf("unknown cache policy %q", c.policy.Kind)
	}
	return entry.Records, true, nil
}

// Set replaces the stored entry with records retrieved now.
func (c *Cache) Set(ctx context.Context, records models.RecordSet) error {
	if len(records) == 0 {
		return errors.New("refusing to cache an empty record set")
	}
	entry := models.CacheEntry{
		RetrievedAt: c.now().UnixMilli(),
		Records:     records,
	}
	if err := c.store.Save(ctx, c.key, entry); err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}

// Ping checks the backing store when it supports it.
func (c *Cache) Ping(ctx context.Context) error {
	if p, ok := c.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
