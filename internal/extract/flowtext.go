package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FlowText reads answers written as running text under a labelled heading, e.g.
// "All answers in Chronological order: crane #123 05/01/24, mango #122 04/30/24".
// Matches are found independently; entries need not sit on their own lines.
type FlowText struct {
	rules   FlowTextRules
	pattern *regexp.Regexp
	word    int
	number  int
	date    int
}

// NewFlowText validates rules and builds the strategy.
func NewFlowText(rules FlowTextRules) (*FlowText, error) {
	if rules.Label == "" || rules.Marker == "" {
		return nil, fmt.Errorf("flowtext rules: label and marker are required")
	}
	pattern, err := regexp.Compile(rules.Pattern)
	if err != nil {
		return nil, fmt.Errorf("flowtext rules: pattern: %w", err)
	}
	f := &FlowText{
		rules:   rules,
		pattern: pattern,
		word:    pattern.SubexpIndex("word"),
		number:  pattern.SubexpIndex("number"),
		date:    pattern.SubexpIndex("date"),
	}
	if f.word < 0 || f.number < 0 || f.date < 0 {
		return nil, fmt.Errorf("flowtext rules: pattern needs named groups word, number and date")
	}
	return f, nil
}

// Name implements Strategy.
func (f *FlowText) Name() string { return StrategyFlowText }

// Raw implements Strategy.
func (f *FlowText) Raw(doc *goquery.Document) ([]RawRecord, error) {
	label := doc.Find(f.rules.Label).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), f.rules.Marker)
	}).First()
	if label.Length() == 0 {
		return nil, &StructureNotFoundError{
			Strategy: f.Name(),
			Anchor:   "list label",
			Detail:   fmt.Sprintf("no %q containing %q", f.rules.Label, f.rules.Marker),
		}
	}

	section := label.AddSelection(label.NextUntil(goquery.NodeName(label)))
	out := f.scan(spacedText(section))
	if len(out) == 0 {
		out = f.scan(spacedText(label.Parent()))
	}
	return out, nil
}

func (f *FlowText) scan(text string) []RawRecord {
	var out []RawRecord
	for _, m := range f.pattern.FindAllStringSubmatch(text, -1) {
		out = append(out, RawRecord{
			Word:   m[f.word],
			Number: m[f.number],
			Date:   m[f.date],
		})
	}
	return out
}

// spacedText joins every text node under sel with a space so adjacent elements
// do not run their words together.
func spacedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
