package social

import (
	"sort"
	"strings"
)

// keywordDampening scales the summed keyword weights before capping at 1.0.
const keywordDampening = 0.3

// DefaultKeywords are the threat keywords and their weights.
var DefaultKeywords = map[string]float64{
	"protest":   0.3,
	"riot":      0.8,
	"violence":  0.7,
	"attack":    0.8,
	"emergency": 0.6,
	"danger":    0.5,
	"fire":      0.6,
	"accident":  0.5,
	"crash":     0.5,
	"fight":     0.4,
	"assault":   0.7,
	"weapon":    0.8,
	"gun":       0.9,
	"knife":     0.7,
	"explosion": 0.9,
	"bomb":      0.9,
}

// KeywordTable is an immutable keyword to weight mapping.
type KeywordTable struct {
	keywords []string
	weights  map[string]float64
}

// NewKeywordTable copies keywords into a table. Keys are lower-cased.
func NewKeywordTable(keywords map[string]float64) KeywordTable {
	weights := make(map[string]float64, len(keywords))
	for k, v := range keywords {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		weights[key] = v
	}
	ordered := make([]string, 0, len(weights))
	for k := range weights {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)
	return KeywordTable{keywords: ordered, weights: weights}
}

// DefaultKeywordTable returns a table over DefaultKeywords.
func DefaultKeywordTable() KeywordTable {
	return NewKeywordTable(DefaultKeywords)
}

// WithOverrides returns a new table with overrides applied on top of t.
func (t KeywordTable) WithOverrides(overrides map[string]float64) KeywordTable {
	merged := t.Entries()
	for k, v := range overrides {
		merged[k] = v
	}
	return NewKeywordTable(merged)
}

// Entries returns a copy of the mapping.
func (t KeywordTable) Entries() map[string]float64 {
	out := make(map[string]float64, len(t.weights))
	for k, v := range t.weights {
		out[k] = v
	}
	return out
}

// Keywords returns the keywords in sorted order.
func (t KeywordTable) Keywords() []string {
	return append([]string(nil), t.keywords...)
}

// Matches returns the keywords contained in text, each at most once.
func (t KeywordTable) Matches(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range t.keywords {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Score sums matched weights and applies dampening, capped at 1.0.
func (t KeywordTable) Score(text string) float64 {
	raw := 0.0
	for _, kw := range t.Matches(text) {
		raw += t.weights[kw]
	}
	return min(1.0, raw*keywordDampening)
}
