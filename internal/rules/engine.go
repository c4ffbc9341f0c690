package rules

import "incidentwatch/pkg/models"

// NoopEngine matches nothing. It stands in when watchlist rules are disabled.
type NoopEngine struct{}

// Match returns no hits.
func (n *NoopEngine) Match(post models.SocialPost) []models.RuleHit {
	return nil
}
