package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScoringTables overrides the built-in visual weights, text keywords and incident rules.
type ScoringTables struct {
	Weights   map[string]float64 `yaml:"weights"`
	Keywords  map[string]float64 `yaml:"keywords"`
	Incidents []IncidentRule     `yaml:"incidents"`
}

// IncidentRule is one ordered incident classification rule.
type IncidentRule struct {
	Type  string   `yaml:"type"`
	Terms []string `yaml:"terms"`
}

// LoadScoringTables reads a YAML override file. An empty path returns empty tables.
func LoadScoringTables(path string) (*ScoringTables, error) {
	if path == "" {
		return &ScoringTables{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring tables: %w", err)
	}

	var tables ScoringTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parse scoring tables: %w", err)
	}
	for name, w := range tables.Weights {
		if w < 0 {
			return nil, fmt.Errorf("weight for %q must not be negative", name)
		}
	}
	for name, w := range tables.Keywords {
		if w < 0 {
			return nil, fmt.Errorf("keyword weight for %q must not be negative", name)
		}
	}
	for i, r := range tables.Incidents {
		if r.Type == "" || len(r.Terms) == 0 {
			return nil, fmt.Errorf("incident rule %d needs a type and terms", i)
		}
	}
	return &tables, nil
}
