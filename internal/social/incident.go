package social

import (
	"strings"

	"incidentwatch/pkg/models"
)

// IncidentRule assigns Type when any term occurs in the text.
type IncidentRule struct {
	Type  models.IncidentType
	Terms []string
}

// DefaultIncidentRules are evaluated in order; the first match wins.
// A post mentioning both a protest and a gun is a protest.
var DefaultIncidentRules = []IncidentRule{
	{Type: models.IncidentProtest, Terms: []string{"protest", "riot", "march", "demonstration"}},
	{Type: models.IncidentViolence, Terms: []string{"attack", "violence", "fight", "assault", "weapon", "gun"}},
	{Type: models.IncidentAccident, Terms: []string{"accident", "crash", "collision", "car crash"}},
	{Type: models.IncidentNaturalDisaster, Terms: []string{"earthquake", "flood", "fire", "disaster", "storm"}},
}

// IncidentClassifier labels text using ordered keyword rules.
type IncidentClassifier struct {
	rules []IncidentRule
}

// NewIncidentClassifier copies rules; nil uses DefaultIncidentRules.
func NewIncidentClassifier(rules []IncidentRule) *IncidentClassifier {
	if rules == nil {
		rules = DefaultIncidentRules
	}
	copied := make([]IncidentRule, 0, len(rules))
	for _, r := range rules {
		terms := make([]string, 0, len(r.Terms))
		for _, term := range r.Terms {
			terms = append(terms, strings.ToLower(term))
		}
		copied = append(copied, IncidentRule{Type: r.Type, Terms: terms})
	}
	return &IncidentClassifier{rules: copied}
}

// Classify returns the first matching incident type, or other.
func (c *IncidentClassifier) Classify(text string) models.IncidentType {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, term := range rule.Terms {
			if strings.Contains(lower, term) {
				return rule.Type
			}
		}
	}
	return models.IncidentOther
}

// Priority returns the rule position of t; other sorts last.
func (c *IncidentClassifier) Priority(t models.IncidentType) int {
	for i, rule := range c.rules {
		if rule.Type == t {
			return i
		}
	}
	return len(c.rules)
}
