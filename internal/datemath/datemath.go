// Package datemath holds the calendar arithmetic used to pick the puzzle and target days.
//
// All keys are formatted in the location of the time value passed in. Callers hand in
// local times: the puzzle page's "today" follows the viewer's calendar, so formatting in
// UTC would move the day boundary for part of the day.
package datemath

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// KeyLayout is the canonical YYYY-MM-DD layout.
const KeyLayout = "2006-01-02"

var keyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CanonicalKey formats t as a zero-padded YYYY-MM-DD in t's own location.
func CanonicalKey(t time.Time) string {
	return t.Format(KeyLayout)
}

// IsKey reports whether s has the strict YYYY-MM-DD shape.
func IsKey(s string) bool {
	return keyPattern.MatchString(s)
}

// ParseKey parses a canonical key as midnight in loc (time.Local when nil).
func ParseKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if !IsKey(key) {
		return time.Time{}, fmt.Errorf("parse date key %q: expected YYYY-MM-DD", key)
	}
	t, err := time.ParseInLocation(KeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// AddDays offsets t by exactly n*24h.
func AddDays(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * 24 * time.Hour)
}

// ShiftKey moves a canonical key by n days. The day is anchored at local noon first so
// a 23h or 25h DST day cannot push the result onto the wrong date.
func ShiftKey(key string, n int) (string, error) {
	day, err := ParseKey(key, time.Local)
	if err != nil {
		return "", err
	}
	noon := day.Add(12 * time.Hour)
	return CanonicalKey(AddDays(noon, n)), nil
}

// PuzzleDateFromContext returns pathSegment verbatim when it is a YYYY-MM-DD key,
// otherwise the canonical key of fallbackNow.
func PuzzleDateFromContext(pathSegment string, fallbackNow time.Time) string {
	if IsKey(pathSegment) {
		return pathSegment
	}
	return CanonicalKey(fallbackNow)
}

// LastPathSegment returns the last "/"-separated element of a URL path.
func LastPathSegment(urlPath string) string {
	if i := strings.LastIndex(urlPath, "/"); i >= 0 {
		return urlPath[i+1:]
	}
	return urlPath
}

// TargetDate is the day immediately before puzzleDate.
func TargetDate(puzzleDate string) (string, error) {
	return ShiftKey(puzzleDate, -1)
}
