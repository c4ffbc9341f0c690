package social

import (
	"context"
	"strings"
	"time"

	"incidentwatch/internal/logger"
	"incidentwatch/internal/metrics"
	"incidentwatch/pkg/models"
)

// RuleMatcher tags posts with watchlist rule hits.
type RuleMatcher interface {
	Match(post models.SocialPost) []models.RuleHit
}

// Analyzer produces the full assessment of a post.
type Analyzer struct {
	scorer     *Scorer
	incidents  *IncidentClassifier
	classifier Classifier
	rules      RuleMatcher
	now        func() time.Time
}

// NewAnalyzer wires a scorer, incident classifier and classifier collaborator. rules may be nil.
func NewAnalyzer(scorer *Scorer, incidents *IncidentClassifier, classifier Classifier, rules RuleMatcher) *Analyzer {
	return &Analyzer{
		scorer:     scorer,
		incidents:  incidents,
		classifier: classifier,
		rules:      rules,
		now:        time.Now,
	}
}

// Incidents returns the analyzer's incident classifier.
func (a *Analyzer) Incidents() *IncidentClassifier {
	return a.incidents
}

// Analyze scores one post. Classifier failures degrade to fallback values and never fail the post.
func (a *Analyzer) Analyze(ctx context.Context, post models.SocialPost) models.Outcome[models.TextAnalysis] {
	if strings.TrimSpace(post.Text) == "" {
		return models.Skipped[models.TextAnalysis]("empty text")
	}

	out := models.TextAnalysis{
		PostID:   post.ID,
		Source:   post.Source,
		Location: post.Location,
	}

	sentiment, err := a.classifier.ClassifySentiment(ctx, post.Text)
	if err != nil {
		logger.Debugf("Sentiment classification failed for post %s: %v", post.ID, err)
		metrics.ClassifierFallbacks.WithLabelValues("sentiment").Inc()
		sentiment = models.ClassifierResult{Label: fallbackSentimentLabel, Score: fallbackSentimentScore}
		out.SentimentFallback = true
	}
	out.SentimentLabel = sentiment.Label
	out.SentimentScore = sentiment.Score

	level, score, fallback := a.scorer.Detect(ctx, a.classifier, post.Text)
	if fallback {
		logger.Debugf("Threat classification failed for post %s; using fallback", post.ID)
		metrics.ClassifierFallbacks.WithLabelValues("threat").Inc()
	}
	out.ThreatLevel = level
	out.ThreatScore = score
	out.ThreatFallback = fallback

	out.IncidentType = a.incidents.Classify(post.Text)
	if a.rules != nil {
		out.RuleHits = a.rules.Match(post)
	}
	out.AnalyzedAt = a.now()

	metrics.PostsScored.WithLabelValues(level.String()).Inc()
	return models.Ok(out)
}
