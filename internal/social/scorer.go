package social

import (
	"context"
	"strings"

	"incidentwatch/pkg/models"
)

const (
	// classifierFloor is the base score when the classifier reports no offensive signal.
	classifierFloor = 0.1

	highThreshold   = 0.7
	mediumThreshold = 0.4

	fallbackThreatScore    = 0.1
	fallbackSentimentLabel = "NEUTRAL"
	fallbackSentimentScore = 0.5
)

var offensiveLabels = map[string]struct{}{
	"offensive": {},
	"hate":      {},
}

// Classifier is the external sentiment and threat classifier pair.
type Classifier interface {
	ClassifySentiment(ctx context.Context, text string) (models.ClassifierResult, error)
	ClassifyThreat(ctx context.Context, text string) (models.ClassifierResult, error)
}

// Scorer turns classifier output and keyword matches into a text threat score.
type Scorer struct {
	keywords KeywordTable
}

// NewScorer creates a scorer over an immutable keyword table.
func NewScorer(keywords KeywordTable) *Scorer {
	return &Scorer{keywords: keywords}
}

// Keywords returns the scorer's keyword table.
func (s *Scorer) Keywords() KeywordTable {
	return s.keywords
}

// Score combines a classifier result with the keyword scan over the full text.
func (s *Scorer) Score(text string, result models.ClassifierResult) (models.ThreatLevel, float64) {
	base := classifierFloor
	if _, ok := offensiveLabels[strings.ToLower(strings.TrimSpace(result.Label))]; ok {
		base = result.Score
	}
	score := min(1.0, base+s.keywords.Score(text))
	return LevelForScore(score), score
}

// Detect calls the threat classifier and scores text.
// A classifier failure yields (LOW, 0.1) and fallback=true.
func (s *Scorer) Detect(ctx context.Context, classifier Classifier, text string) (level models.ThreatLevel, score float64, fallback bool) {
	result, err := classifier.ClassifyThreat(ctx, text)
	if err != nil {
		return models.ThreatLow, fallbackThreatScore, true
	}
	level, score = s.Score(text, result)
	return level, score, false
}

// LevelForScore bands a text threat score.
func LevelForScore(score float64) models.ThreatLevel {
	if score > highThreshold {
		return models.ThreatHigh
	}
	if score > mediumThreshold {
		return models.ThreatMedium
	}
	return models.ThreatLow
}
