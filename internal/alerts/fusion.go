package alerts

import "incidentwatch/pkg/models"

const (
	fusedHighThreshold   = 1.0
	fusedMediumThreshold = 0.5
)

// levelMultiplier weights a text score by its own level before pooling.
var levelMultiplier = map[models.ThreatLevel]float64{
	models.ThreatHigh:   1.5,
	models.ThreatMedium: 1.2,
	models.ThreatLow:    1.0,
}

// FusionResult is the pooled view over one incident's assessments.
type FusionResult struct {
	Level   models.ThreatLevel `json:"level"`
	Average float64            `json:"average"`
	Inputs  int                `json:"inputs"`
}

// Fuse combines text and frame assessments into one level.
func Fuse(texts []models.TextAnalysis, frames []models.FrameAnalysis) models.ThreatLevel {
	return FuseDetail(texts, frames).Level
}

// FuseDetail pools level-adjusted text scores with raw frame scores and bands the mean.
// No inputs fuse to LOW.
func FuseDetail(texts []models.TextAnalysis, frames []models.FrameAnalysis) FusionResult {
	n := len(texts) + len(frames)
	if n == 0 {
		return FusionResult{Level: models.ThreatLow}
	}

	sum := 0.0
	for _, t := range texts {
		m, ok := levelMultiplier[t.ThreatLevel]
		if !ok {
			m = 1.0
		}
		sum += t.ThreatScore * m
	}
	for _, f := range frames {
		sum += f.ThreatScore
	}

	avg := sum / float64(n)
	return FusionResult{Level: fusedLevel(avg), Average: avg, Inputs: n}
}

func fusedLevel(avg float64) models.ThreatLevel {
	if avg > fusedHighThreshold {
		return models.ThreatHigh
	}
	if avg > fusedMediumThreshold {
		return models.ThreatMedium
	}
	return models.ThreatLow
}
