package extract

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/DeafMist/prevword/internal/datemath"
	"github.com/DeafMist/prevword/internal/models"
)

var (
	lettersOnly  = regexp.MustCompile(`^[A-Z]+$`)
	numericDate  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2}|\d{4})$`)
	hasFullYear  = regexp.MustCompile(`\b\d{4}\b`)
	dateNoise    = strings.NewReplacer(",", " ", ".", " ")
	longAbbrev   = regexp.MustCompile(`(?i)\b(sept|tues|thurs?|weds)\b`)
	goAbbrev     = map[string]string{"sept": "Sep", "tues": "Tue", "thur": "Thu", "thurs": "Thu", "weds": "Wed"}
	monthLayouts = []string{
		"Jan 2 2006",
		"January 2 2006",
		"Mon Jan 2 2006",
		"Monday January 2 2006",
		"2 Jan 2006",
		"2 January 2006",
	}
)

// CleanText decodes entities and squeezes whitespace, including non-breaking spaces.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(input)), " ")
}

func normalize(row int, raw RawRecord) (models.WordRecord, error) {
	word := strings.ToUpper(CleanText(raw.Word))
	if word == "" {
		return models.WordRecord{}, &MalformedRowError{Row: row, Field: "word", Value: raw.Word, Reason: "empty"}
	}
	if !lettersOnly.MatchString(word) {
		return models.WordRecord{}, &MalformedRowError{Row: row, Field: "word", Value: raw.Word, Reason: "not letters only"}
	}

	date, err := NormalizeDate(raw.Date, raw.Year)
	if err != nil {
		return models.WordRecord{}, &MalformedRowError{Row: row, Field: "date", Value: raw.Date, Reason: err.Error()}
	}

	return models.WordRecord{
		Date:   date,
		Number: parseNumber(raw.Number),
		Word:   word,
	}, nil
}

// NormalizeDate converts a source-native date into a canonical key. Numeric
// M/D/YY dates carry their own year (two-digit years are 20YY); month-name dates
// take year from the surrounding context unless they already contain one.
func NormalizeDate(raw, year string) (string, error) {
	text := CleanText(raw)
	if text == "" {
		return "", fmt.Errorf("empty date")
	}

	if m := numericDate.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		mon, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return buildKey(y, mon, day)
	}

	text = strings.Join(strings.Fields(dateNoise.Replace(text)), " ")
	text = longAbbrev.ReplaceAllStringFunc(text, func(m string) string {
		return goAbbrev[strings.ToLower(m)]
	})
	if !hasFullYear.MatchString(text) {
		if year == "" {
			return "", fmt.Errorf("no year for %q", text)
		}
		text += " " + year
	}

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return datemath.CanonicalKey(t), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", text)
}

func buildKey(y, mon, day int) (string, error) {
	t := time.Date(y, time.Month(mon), day, 0, 0, 0, 0, time.Local)
	if t.Year() != y || int(t.Month()) != mon || t.Day() != day {
		return "", fmt.Errorf("invalid calendar date %04d-%02d-%02d", y, mon, day)
	}
	return datemath.CanonicalKey(t), nil
}

// parseNumber returns the sequence number, 0 when absent or not numeric.
func parseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(CleanText(raw), "#"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
