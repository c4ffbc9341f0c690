package visual

import (
	"context"
	"errors"
	"time"

	"incidentwatch/pkg/models"
)

const (
	crowdThreshold      = 20
	crowdBonus          = 0.3
	largeCrowdThreshold = 50
	largeCrowdBonus     = 0.5

	highThreshold   = 1.5
	mediumThreshold = 0.8
)

// ErrEmptyFrame marks a frame with no image data.
var ErrEmptyFrame = errors.New("frame has no image data")

// Frame is one raw frame read from a video source.
type Frame struct {
	Ref      models.FrameRef
	Location *models.Location
	Image    []byte
}

// Detector runs object detection over one frame.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]models.Detection, error)
}

// Scorer converts raw detections into a frame threat assessment.
type Scorer struct {
	weights WeightTable
	now     func() time.Time
}

// NewScorer creates a scorer over an immutable weight table.
func NewScorer(weights WeightTable) *Scorer {
	return &Scorer{weights: weights, now: time.Now}
}

// Weights returns the scorer's weight table.
func (s *Scorer) Weights() WeightTable {
	return s.weights
}

// Score computes the assessment for one frame's detections.
func (s *Scorer) Score(detections []models.Detection) models.FrameAnalysis {
	out := models.FrameAnalysis{
		Detections: make([]models.Detection, 0, len(detections)),
	}

	score := 0.0
	for _, d := range detections {
		switch Categorize(d.ClassLabel) {
		case CategoryPerson:
			out.PeopleCount++
			score += s.weights.Weight(d.ClassLabel) * d.Confidence
		case CategoryVehicle:
			out.VehicleCount++
			score += s.weights.Weight(d.ClassLabel) * d.Confidence
		case CategoryWeapon:
			out.WeaponCount++
			score += s.weights.Weight(d.ClassLabel) * d.Confidence
		case CategoryFire:
			out.FireCount++
			score += s.weights.Weight(d.ClassLabel) * d.Confidence
		}
		out.Detections = append(out.Detections, d)
	}

	score += CrowdBonus(out.PeopleCount)

	out.ThreatScore = score
	out.ThreatLevel = LevelForScore(score)
	out.CrowdDensity = out.PeopleCount
	out.AnomalyDetected = out.ThreatLevel != models.ThreatLow
	out.AnalyzedAt = s.now()
	return out
}

// ScoreFrame runs the detector on frame and scores the result.
// A detector failure yields a Failed outcome, never a zero-score analysis.
func (s *Scorer) ScoreFrame(ctx context.Context, detector Detector, frame Frame) models.Outcome[models.FrameAnalysis] {
	if len(frame.Image) == 0 {
		return models.Skipped[models.FrameAnalysis](ErrEmptyFrame.Error())
	}
	detections, err := detector.Detect(ctx, frame)
	if err != nil {
		return models.Failed[models.FrameAnalysis]("detector", err)
	}
	analysis := s.Score(detections)
	analysis.Frame = frame.Ref
	analysis.Location = frame.Location
	return models.Ok(analysis)
}

// CrowdBonus returns the cumulative crowd escalation for a people count.
func CrowdBonus(people int) float64 {
	bonus := 0.0
	if people > crowdThreshold {
		bonus += crowdBonus
	}
	if people > largeCrowdThreshold {
		bonus += largeCrowdBonus
	}
	return bonus
}

// LevelForScore bands a raw visual score.
func LevelForScore(score float64) models.ThreatLevel {
	if score > highThreshold {
		return models.ThreatHigh
	}
	if score > mediumThreshold {
		return models.ThreatMedium
	}
	return models.ThreatLow
}
