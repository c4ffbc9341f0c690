package visual

import (
	"sort"
	"strings"
)

// Category groups detector class labels for counting and scoring.
type Category int

const (
	CategoryOther Category = iota
	CategoryPerson
	CategoryVehicle
	CategoryWeapon
	CategoryFire
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPerson:
		return "person"
	case CategoryVehicle:
		return "vehicle"
	case CategoryWeapon:
		return "weapon"
	case CategoryFire:
		return "fire"
	default:
		return "other"
	}
}

var categoryByLabel = map[string]Category{
	"person":     CategoryPerson,
	"car":        CategoryVehicle,
	"truck":      CategoryVehicle,
	"bus":        CategoryVehicle,
	"motorcycle": CategoryVehicle,
	"bicycle":    CategoryVehicle,
	"knife":      CategoryWeapon,
	"gun":        CategoryWeapon,
	"fire":       CategoryFire,
}

// fallback weight used when the table has no entry for a categorized label.
var categoryFallback = map[Category]float64{
	CategoryPerson:  0.10,
	CategoryVehicle: 0.05,
	CategoryWeapon:  0.80,
	CategoryFire:    0.90,
}

// Categorize maps a detector class label to its category.
func Categorize(label string) Category {
	return categoryByLabel[strings.ToLower(strings.TrimSpace(label))]
}

// DefaultWeights are the per-class weights used when no override is configured.
var DefaultWeights = map[string]float64{
	"person":     0.10,
	"car":        0.05,
	"truck":      0.10,
	"bus":        0.10,
	"motorcycle": 0.08,
	"bicycle":    0.03,
	"fire":       0.90,
	"knife":      0.80,
	"gun":        0.90,
}

// WeightTable is an immutable class-label to weight mapping.
type WeightTable struct {
	weights map[string]float64
}

// NewWeightTable copies weights into a table. Keys are lower-cased.
func NewWeightTable(weights map[string]float64) WeightTable {
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return WeightTable{weights: out}
}

// DefaultWeightTable returns a table over DefaultWeights.
func DefaultWeightTable() WeightTable {
	return NewWeightTable(DefaultWeights)
}

// WithOverrides returns a new table with overrides applied on top of t.
func (t WeightTable) WithOverrides(overrides map[string]float64) WeightTable {
	merged := t.Entries()
	for k, v := range overrides {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return NewWeightTable(merged)
}

// Weight returns the weight for a label, falling back to its category default.
func (t WeightTable) Weight(label string) float64 {
	key := strings.ToLower(strings.TrimSpace(label))
	if w, ok := t.weights[key]; ok {
		return w
	}
	if w, ok := categoryFallback[Categorize(key)]; ok {
		return w
	}
	return 0.10
}

// Entries returns a copy of the mapping.
func (t WeightTable) Entries() map[string]float64 {
	out := make(map[string]float64, len(t.weights))
	for k, v := range t.weights {
		out[k] = v
	}
	return out
}

// Classes returns the configured class labels in sorted order.
func (t WeightTable) Classes() []string {
	out := make([]string, 0, len(t.weights))
	for k := range t.weights {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
