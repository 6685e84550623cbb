package models

// WordRecord is one validated answer row. Date is a canonical YYYY-MM-DD key.
// Number is informational and never used for lookup.
type WordRecord struct {
	Date   string `json:"date"`
	Number int    `json:"number"`
	Word   string `json:"word"`
}

// RecordSet is ordered newest first with unique dates. It is rebuilt wholesale
// on every successful extraction and never mutated afterwards.
type RecordSet []WordRecord

// Newest returns the first record, or false for an empty set.
func (s RecordSet) Newest() (WordRecord, bool) {
	if len(s) == 0 {
		return WordRecord{}, false
	}
	return s[0], true
}

// Lookup finds the record for date.
func (s RecordSet) Lookup(date string) (WordRecord, bool) {
	for _, r := range s {
		if r.Date == date {
			return r, true
		}
	}
	return WordRecord{}, false
}

// CacheEntry is the persisted cache value. RetrievedAt is epoch milliseconds.
type CacheEntry struct {
	RetrievedAt int64     `json:"retrievedAt"`
	Records     RecordSet `json:"records"`
}

// UnknownWord is what presenters show when no record matches the target date.
const UnknownWord = "<unknown>"

// Resolution is the resolver's terminal result. Exactly one of Word or Unknown is set.
type Resolution struct {
	ID         string `json:"id"`
	PuzzleDate string `json:"puzzleDate"`
	TargetDate string `json:"targetDate"`
	Word       string `json:"word,omitempty"`
	Unknown    bool   `json:"unknown,omitempty"`
	FromCache  bool   `json:"fromCache"`
	SourceURL  string `json:"source"`
}

// Display returns the word, or UnknownWord for an unknown result.
func (r Resolution) Display() string {
	if r.Unknown {
		return UnknownWord
	}
	return r.Word
}
