package extract

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

var singleToken = regexp.MustCompile(`^\s*\w+\s*$`)

// Tabular reads answers laid out as table rows grouped under year headings:
//
//	<h2>Wordle Answers 2024</h2>
//	<table><tr><td>Jan 5</td><td>10</td><td>SASSY</td></tr>...</table>
type Tabular struct {
	rules TabularRules
	year  *regexp.Regexp
}

// NewTabular validates rules and builds the strategy.
func NewTabular(rules TabularRules) (*Tabular, error) {
	if rules.Container == "" || rules.Row == "" || rules.Cell == "" || rules.Heading == "" {
		return nil, fmt.Errorf("tabular rules: container, row, cell and heading are required")
	}
	for name, idx := range map[string]int{"date_cell": rules.DateCell, "number_cell": rules.NumberCell, "word_cell": rules.WordCell} {
		if idx <= 0 {
			return nil, fmt.Errorf("tabular rules: %s must be positive", name)
		}
	}
	year, err := regexp.Compile(rules.YearPattern)
	if err != nil {
		return nil, fmt.Errorf("tabular rules: year_pattern: %w", err)
	}
	return &Tabular{rules: rules, year: year}, nil
}

// Name implements Strategy.
func (t *Tabular) Name() string { return StrategyTabular }

// Raw implements Strategy.
func (t *Tabular) Raw(doc *goquery.Document) ([]RawRecord, error) {
	var (
		out     []RawRecord
		yearErr error
	)

	doc.Find(t.rules.Container).EachWithBreak(func(_ int, container *goquery.Selection) bool {
		rows := container.Find(t.rules.Row).FilterFunction(func(_ int, row *goquery.Selection) bool {
			cells := row.ChildrenFiltered(t.rules.Cell)
			if cells.Length() < t.rules.WordCell {
				return false
			}
			return singleToken.MatchString(cells.Eq(t.rules.WordCell - 1).Text())
		})
		if rows.Length() == 0 {
			return true
		}

		year, err := t.yearFor(container)
		if err != nil {
			yearErr = err
			return false
		}

		rows.Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered(t.rules.Cell)
			out = append(out, RawRecord{
				Date:   cellText(cells, t.rules.DateCell),
				Number: cellText(cells, t.rules.NumberCell),
				Word:   cellText(cells, t.rules.WordCell),
				Year:   year,
			})
		})
		return true
	})

	if yearErr != nil {
		return nil, yearErr
	}
	if len(out) == 0 {
		return nil, &StructureNotFoundError{
			Strategy: t.Name(),
			Anchor:   "answers table",
			Detail:   fmt.Sprintf("no %q rows with a single word in cell %d", t.rules.Row, t.rules.WordCell),
		}
	}
	return out, nil
}

// yearFor reads the year from the heading immediately before container.
func (t *Tabular) yearFor(container *goquery.Selection) (string, error) {
	heading := container.Prev()
	if heading.Length() == 0 || !heading.Is(t.rules.Heading) {
		return "", &StructureNotFoundError{
			Strategy: t.Name(),
			Anchor:   "year heading",
			Detail:   fmt.Sprintf("expected %q before %q", t.rules.Heading, t.rules.Container),
		}
	}

	m := t.year.FindStringSubmatch(heading.Text())
	if m == nil {
		return "", &StructureNotFoundError{
			Strategy: t.Name(),
			Anchor:   "year heading",
			Detail:   fmt.Sprintf("%q does not match %s", CleanText(heading.Text()), t.year),
		}
	}
	if len(m) > 1 {
		return m[1], nil
	}
	return m[0], nil
}

func cellText(cells *goquery.Selection, idx int) string {
	if idx > cells.Length() {
		return ""
	}
	return CleanText(cells.Eq(idx - 1).Text())
}
