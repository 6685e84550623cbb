// Package resolver finds the word of the day before a puzzle date, refreshing the
// cached record set from the source page when the cache cannot answer.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/prevword/internal/datemath"
	"github.com/DeafMist/prevword/internal/extract"
	"github.com/DeafMist/prevword/internal/fetch"
	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
)

// ErrInvalidPuzzleDate is returned for a puzzle date that is not a real YYYY-MM-DD day.
var ErrInvalidPuzzleDate = errors.New("invalid puzzle date")

// Extractor turns a fetched page into records.
type Extractor interface {
	Extract(doc *goquery.Document) (models.RecordSet, error)
}

// RecordCache is the subset of cache.Cache the resolver needs.
type RecordCache interface {
	Get(ctx context.Context, targetDate string) (models.RecordSet, bool, error)
	Set(ctx context.Context, records models.RecordSet) error
	Key() string
}

// Resolver answers from the cache, refreshing it from the source page on a miss.
type Resolver struct {
	cache     RecordCache
	fetcher   fetch.Fetcher
	extractor Extractor
	sourceURL string
	log       *slog.Logger
	now       func() time.Time
	group     singleflight.Group
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides time.Now for the "today" fallback.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New wires a resolver.
func New(c RecordCache, f fetch.Fetcher, e Extractor, sourceURL string, log *slog.Logger, opts ...Option) *Resolver {
	log = logger.OrDiscard(log)
	r := &Resolver{
		cache:     c,
		fetcher:   f,
		extractor: e,
		sourceURL: sourceURL,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SourceURL is the page records are extracted from.
func (r *Resolver) SourceURL() string { return r.sourceURL }

// ResolveForPath takes the puzzle date from the last segment of a host page path,
// falling back to today when the segment is not a date.
func (r *Resolver) ResolveForPath(ctx context.Context, urlPath string) (models.Resolution, error) {
	puzzle := datemath.PuzzleDateFromContext(datemath.LastPathSegment(urlPath), r.now())
	return r.Resolve(ctx, puzzle)
}

// Resolve returns the word for the day before puzzleDate (today when empty). A
// target date missing from the records yields Unknown with a nil error; fetch and
// extraction failures are returned as-is and leave the cache untouched.
func (r *Resolver) Resolve(ctx context.Context, puzzleDate string) (models.Resolution, error) {
	if puzzleDate == "" {
		puzzleDate = datemath.CanonicalKey(r.now())
	}
	target, err := datemath.TargetDate(puzzleDate)
	if err != nil {
		return models.Resolution{}, fmt.Errorf("%w: %v", ErrInvalidPuzzleDate, err)
	}

	res := models.Resolution{
		ID:         uuid.NewString(),
		PuzzleDate: puzzleDate,
		TargetDate: target,
		SourceURL:  r.sourceURL,
	}
	log := r.log.With(slog.String("resolution", res.ID), slog.String("target_date", target))

	records, hit, err := r.cache.Get(ctx, target)
	if err != nil {
		log.Warn("cache read failed, refreshing", slog.Any("err", err))
	}
	if !hit {
		records, err = r.refresh(ctx, log)
		if err != nil {
			log.Error("refresh failed", slog.String("kind", Describe(err)), slog.Any("err", err))
			return res, err
		}
	}
	res.FromCache = hit

	if rec, ok := records.Lookup(target); ok {
		res.Word = rec.Word
		log.Info("resolved", slog.String("word", rec.Word), slog.Bool("from_cache", hit))
	} else {
		res.Unknown = true
		log.Info("target date not listed", slog.Bool("from_cache", hit), slog.Int("records", len(records)))
	}
	return res, nil
}

// refresh rebuilds the record set. Concurrent callers share one fetch, which runs
// detached from any single caller's cancellation; each caller stops waiting when
// its own ctx is done.
func (r *Resolver) refresh(ctx context.Context, log *slog.Logger) (models.RecordSet, error) {
	work := context.WithoutCancel(ctx)
	ch := r.group.DoChan(r.cache.Key(), func() (any, error) {
		doc, err := r.fetcher.Fetch(work, r.sourceURL)
		if err != nil {
			return nil, err
		}
		records, err := r.extractor.Extract(doc)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Set(work, records); err != nil {
			log.Error("cache write failed", slog.Any("err", err))
		}
		return records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug("joined in-flight refresh")
		}
		return res.Val.(models.RecordSet), nil
	}
}

// Describe classifies a resolution error for presenters.
func Describe(err error) string {
	var (
		fe  *fetch.FetchError
		snf *extract.StructureNotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &snf):
		return "structure"
	case errors.Is(err, ErrInvalidPuzzleDate):
		return "invalid_date"
	default:
		return "internal"
	}
}
