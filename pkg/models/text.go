package models

import "time"

// SocialPost is one ingested social media post.
type SocialPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Author    string    `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Location  *Location `json:"location,omitempty"`
}

// ClassifierResult is the top label returned by a text classifier.
type ClassifierResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// RuleHit is a watchlist rule that matched a post.
type RuleHit struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// TextAnalysis is the threat assessment of one post.
type TextAnalysis struct {
	PostID            string       `json:"post_id,omitempty"`
	Source            string       `json:"source,omitempty"`
	Location          *Location    `json:"location,omitempty"`
	SentimentLabel    string       `json:"sentiment_label"`
	SentimentScore    float64      `json:"sentiment_score"`
	ThreatLevel       ThreatLevel  `json:"threat_level"`
	ThreatScore       float64      `json:"threat_score"`
	IncidentType      IncidentType `json:"incident_type"`
	RuleHits          []RuleHit    `json:"rule_hits,omitempty"`
	SentimentFallback bool         `json:"sentiment_fallback,omitempty"`
	ThreatFallback    bool         `json:"threat_fallback,omitempty"`
	AnalyzedAt        time.Time    `json:"analyzed_at"`
}

// TruncateText cuts s to at most n characters.
func TruncateText(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
