// Package extract turns a fetched answers page into a validated RecordSet.
//
// A Strategy knows one upstream page shape and yields RawRecords. The Extractor
// normalizes them, drops malformed rows, sorts newest first and removes duplicate
// dates. A page whose anchor is missing fails with StructureNotFoundError instead of
// producing an empty set.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
)

// RawRecord is the source-native shape of one entry before validation.
type RawRecord struct {
	Date   string
	Year   string
	Number string
	Word   string
}

// Strategy extracts raw records from one page shape.
type Strategy interface {
	Name() string
	Raw(doc *goquery.Document) ([]RawRecord, error)
}

// StructureNotFoundError means the page no longer has the shape the strategy expects.
type StructureNotFoundError struct {
	Strategy string
	Anchor   string
	Detail   string
}

func (e *StructureNotFoundError) Error() string {
	msg := fmt.Sprintf("extract %s: %s not found", e.Strategy, e.Anchor)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + " (selectors need updating?)"
}

// MalformedRowError describes a single row that failed validation. Rows with this
// error are skipped; they never abort an extraction.
type MalformedRowError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// Extractor runs a Strategy and validates its output.
type Extractor struct {
	strategy Strategy
	log      *slog.Logger
}

// NewExtractor wraps strategy.
func NewExtractor(strategy Strategy, log *slog.Logger) *Extractor {
	log = logger.OrDiscard(log)
	return &Extractor{strategy: strategy, log: log.With(slog.String("strategy", strategy.Name()))}
}

// New builds the extractor selected by rules.Strategy.
func New(rules Rules, log *slog.Logger) (*Extractor, error) {
	var (
		s   Strategy
		err error
	)
	switch rules.Strategy {
	case StrategyTabular:
		s, err = NewTabular(rules.Tabular)
	case StrategyFlowText:
		s, err = NewFlowText(rules.FlowText)
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", rules.Strategy)
	}
	if err != nil {
		return nil, err
	}
	return NewExtractor(s, log), nil
}

// Strategy returns the configured strategy name.
func (e *Extractor) Strategy() string {
	return e.strategy.Name()
}

// Extract returns the validated records of doc, newest first.
func (e *Extractor) Extract(doc *goquery.Document) (models.RecordSet, error) {
	raws, err := e.strategy.Raw(doc)
	if err != nil {
		return nil, err
	}

	records := make([]models.WordRecord, 0, len(raws))
	skipped := 0
	for i, raw := range raws {
		rec, err := normalize(i+1, raw)
		if err != nil {
			var mre *MalformedRowError
			if !errors.As(err, &mre) {
				return nil, err
			}
			skipped++
			e.log.Debug("skipping malformed row", slog.Any("err", err))
			continue
		}
		records = append(records, rec)
	}

	set, dropped := sortAndDedupe(records)
	for _, d := range dropped {
		e.log.Debug("dropping duplicate date", slog.String("date", d.Date), slog.String("word", d.Word))
	}

	if len(set) == 0 {
		return nil, &StructureNotFoundError{
			Strategy: e.strategy.Name(),
			Anchor:   "word list",
			Detail:   fmt.Sprintf("%d candidate rows, none valid", len(raws)),
		}
	}

	e.log.Debug("extracted records",
		slog.Int("records", len(set)),
		slog.Int("skipped", skipped),
		slog.Int("duplicates", len(dropped)),
	)
	return set, nil
}

// sortAndDedupe orders records newest first and keeps only the first record for
// each date, returning the dropped duplicates.
func sortAndDedupe(records []models.WordRecord) (models.RecordSet, []models.WordRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})

	set := make(models.RecordSet, 0, len(records))
	var dropped []models.WordRecord
	for _, r := range records {
		if n := len(set); n > 0 && set[n-1].Date == r.Date {
			dropped = append(dropped, r)
			continue
		}
		set = append(set, r)
	}
	return set, dropped
}
