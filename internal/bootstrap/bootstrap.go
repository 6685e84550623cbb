// Package bootstrap assembles a resolver from configuration. Every binary goes
// through Build so the api, worker and CLI resolve identically.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/DeafMist/prevword/internal/cache"
	"github.com/DeafMist/prevword/internal/config"
	"github.com/DeafMist/prevword/internal/elasticsearch"
	"github.com/DeafMist/prevword/internal/extract"
	"github.com/DeafMist/prevword/internal/fetch"
	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/resolver"
)

// Service bundles the wired components.
type Service struct {
	Cache     *cache.Cache
	Extractor *extract.Extractor
	Fetcher   fetch.Fetcher
	Resolver  *resolver.Resolver

	closers []io.Closer
}

// Option customizes Build.
type Option func(*options)

type options struct {
	fetcher fetch.Fetcher
	now     func() time.Time
}

// WithFetcher replaces the HTTP fetcher, e.g. with fetch.FileFetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithClock overrides time.Now in the cache and resolver.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Build wires store, cache, extractor, fetcher and resolver from cfg.
func Build(cfg config.Common, log *slog.Logger, opts ...Option) (*Service, error) {
	log = logger.OrDiscard(log)
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	svc := &Service{}

	store, err := svc.openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	policy, err := cache.ParsePolicy(cfg.CachePolicy, cfg.CacheMaxAge)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Cache = cache.New(store, cfg.CacheKey, policy, log, cache.WithClock(o.now))

	rules, err := extract.LoadRules(cfg.ExtractRulesFile)
	if err != nil {
		svc.Close()
		return nil, err
	}
	if cfg.ExtractStrategy != "" {
		rules.Strategy = cfg.ExtractStrategy
	}
	svc.Extractor, err = extract.New(rules, log)
	if err != nil {
		svc.Close()
		return nil, err
	}

	svc.Fetcher = o.fetcher
	if svc.Fetcher == nil {
		svc.Fetcher = fetch.NewHTTPFetcher(fetch.Options{
			Timeout:     cfg.FetchTimeout,
			UserAgent:   cfg.FetchUserAgent,
			Accept:      cfg.FetchAccept,
			MaxBodySize: int64(cfg.FetchMaxBodyKB) << 10,
		}, log)
	}

	svc.Resolver = resolver.New(svc.Cache, svc.Fetcher, svc.Extractor, cfg.SourceURL, log, resolver.WithClock(o.now))

	log.Info("resolver ready",
		slog.String("source", cfg.SourceURL),
		slog.String("strategy", svc.Extractor.Strategy()),
		slog.String("backend", cfg.CacheBackend),
		slog.String("policy", policy.String()),
	)
	return svc, nil
}

func (s *Service) openStore(cfg config.Common, log *slog.Logger) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil
	case config.BackendFile:
		return cache.NewFileStore(cfg.CachePath)
	case config.BackendSQLite:
		st, err := cache.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, st)
		return st, nil
	case config.BackendElasticsearch:
		return elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// Ping checks the cache store.
func (s *Service) Ping(ctx context.Context) error {
	return s.Cache.Ping(ctx)
}

// Close releases the store.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
