package extract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Strategy names accepted in configuration.
const (
	StrategyTabular  = "tabular"
	StrategyFlowText = "flowtext"
)

// TabularRules locate the answers table. Cell indexes are 1-based.
type TabularRules struct {
	Container   string `yaml:"container"`
	Row         string `yaml:"row"`
	Cell        string `yaml:"cell"`
	DateCell    int    `yaml:"date_cell"`
	NumberCell  int    `yaml:"number_cell"`
	WordCell    int    `yaml:"word_cell"`
	Heading     string `yaml:"heading"`
	YearPattern string `yaml:"year_pattern"`
}

// FlowTextRules locate the labelled block of "word #N MM/DD/YY" entries. Pattern must
// define the named groups word, number and date.
type FlowTextRules struct {
	Label   string `yaml:"label"`
	Marker  string `yaml:"marker"`
	Pattern string `yaml:"pattern"`
}

// Rules is the full extraction ruleset.
type Rules struct {
	Strategy string        `yaml:"strategy"`
	Tabular  TabularRules  `yaml:"tabular"`
	FlowText FlowTextRules `yaml:"flowtext"`
}

// DefaultRules match the answers pages as last seen.
func DefaultRules() Rules {
	return Rules{
		Strategy: StrategyTabular,
		Tabular: TabularRules{
			Container:   "table",
			Row:         "tr",
			Cell:        "td",
			DateCell:    1,
			NumberCell:  2,
			WordCell:    3,
			Heading:     "h2",
			YearPattern: `(\d{4})`,
		},
		FlowText: FlowTextRules{
			Label:   "h1, h2, h3, h4, h5, h6, p, strong, b",
			Marker:  "Chronological",
			Pattern: `(?P<word>[A-Za-z]+)\s*#\s*(?P<number>\d+)\s*[-–—:,]?\s*(?P<date>\d{1,2}/\d{1,2}/\d{2,4})`,
		},
	}
}

// LoadRules reads a YAML ruleset from path on top of DefaultRules. An empty path
// returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}
