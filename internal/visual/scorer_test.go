package visual

import (
	"context"
	"errors"
	"math"
	"testing"

	"incidentwatch/pkg/models"
)

const epsilon = 1e-9

func detections(label string, conf float64, n int) []models.Detection {
	out := make([]models.Detection, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Detection{ClassLabel: label, Confidence: conf})
	}
	return out
}

func TestScoreCountsCategoriesAndIgnoresOtherClasses(t *testing.T) {
	s := NewScorer(DefaultWeightTable())
	dets := []models.Detection{
		{ClassLabel: "person", Confidence: 1},
		{ClassLabel: "car", Confidence: 1},
		{ClassLabel: "bicycle", Confidence: 1},
		{ClassLabel: "knife", Confidence: 0.5},
		{ClassLabel: "fire", Confidence: 0.5},
		{ClassLabel: "dog", Confidence: 0.99},
	}

	got := s.Score(dets)
	if got.PeopleCount != 1 || got.VehicleCount != 2 || got.WeaponCount != 1 || got.FireCount != 1 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if len(got.Detections) != len(dets) {
		t.Fatalf("expected all %d detections recorded, got %d", len(dets), len(got.Detections))
	}
	want := 0.10 + 0.05 + 0.03 + 0.80*0.5 + 0.90*0.5
	if math.Abs(got.ThreatScore-want) > epsilon {
		t.Fatalf("expected score %f, got %f", want, got.ThreatScore)
	}
	if got.ThreatLevel != models.ThreatMedium || !got.AnomalyDetected {
		t.Fatalf("expected MEDIUM anomaly, got %s anomaly=%v", got.ThreatLevel, got.AnomalyDetected)
	}
}

func TestScoreCrowdWithGunIsHigh(t *testing.T) {
	s := NewScorer(DefaultWeightTable())
	dets := append(detections("person", 0.9, 25), models.Detection{ClassLabel: "gun", Confidence: 0.95})

	got := s.Score(dets)
	if got.PeopleCount != 25 || got.WeaponCount != 1 {
		t.Fatalf("unexpected counts: people=%d weapons=%d", got.PeopleCount, got.WeaponCount)
	}
	want := 25*0.10*0.9 + 0.95*0.90 + 0.3
	if math.Abs(got.ThreatScore-want) > epsilon {
		t.Fatalf("expected score %f, got %f", want, got.ThreatScore)
	}
	if got.ThreatLevel != models.ThreatHigh || !got.AnomalyDetected {
		t.Fatalf("expected HIGH anomaly, got %s", got.ThreatLevel)
	}
	if got.CrowdDensity != 25 {
		t.Fatalf("expected crowd density 25, got %d", got.CrowdDensity)
	}
}

func TestCrowdBonusIsCumulative(t *testing.T) {
	s := NewScorer(DefaultWeightTable())
	dets := detections("person", 0.5, 55)

	got := s.Score(dets)
	base := 55 * 0.10 * 0.5
	if math.Abs(got.ThreatScore-base-0.8) > epsilon {
		t.Fatalf("expected bonus of exactly 0.8 over %f, got %f", base, got.ThreatScore)
	}
	if CrowdBonus(20) != 0 || CrowdBonus(21) != 0.3 || CrowdBonus(50) != 0.3 {
		t.Fatalf("unexpected crowd bonus thresholds")
	}
}

func TestScoreWithoutWeaponsOrCrowdStaysBelowHigh(t *testing.T) {
	s := NewScorer(DefaultWeightTable())
	dets := append(detections("person", 1, 10), detections("truck", 1, 4)...)

	got := s.Score(dets)
	if got.ThreatScore > 1.5 {
		t.Fatalf("expected score at or below 1.5, got %f", got.ThreatScore)
	}
	if got.ThreatLevel != models.ThreatMedium {
		t.Fatalf("expected MEDIUM for score %f, got %s", got.ThreatScore, got.ThreatLevel)
	}
}

func TestScoreSmallCrowdAboveHighThresholdIsHigh(t *testing.T) {
	s := NewScorer(DefaultWeightTable())
	dets := detections("person", 1, 16)

	got := s.Score(dets)
	if got.PeopleCount > 20 || got.WeaponCount != 0 || got.FireCount != 0 {
		t.Fatalf("fixture must have no crowd bonus, weapons or fire, got %+v", got)
	}
	if got.ThreatScore <= 1.5 {
		t.Fatalf("expected score above 1.5, got %f", got.ThreatScore)
	}
	if got.ThreatLevel != models.ThreatHigh {
		t.Fatalf("expected HIGH for score %f, got %s", got.ThreatScore, got.ThreatLevel)
	}
}

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  models.ThreatLevel
	}{
		{0, models.ThreatLow},
		{0.8, models.ThreatLow},
		{0.81, models.ThreatMedium},
		{1.5, models.ThreatMedium},
		{1.51, models.ThreatHigh},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Fatalf("score %f: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestWeightTableFallbacksAndEnumeration(t *testing.T) {
	table := NewWeightTable(map[string]float64{"Person": 0.2})
	if table.Weight("person") != 0.2 {
		t.Fatalf("expected lower-cased override")
	}
	if table.Weight("bus") != 0.05 {
		t.Fatalf("expected vehicle fallback 0.05, got %f", table.Weight("bus"))
	}
	if table.Weight("gun") != 0.80 {
		t.Fatalf("expected weapon fallback 0.80, got %f", table.Weight("gun"))
	}
	if table.Weight("kite") != 0.10 {
		t.Fatalf("expected generic fallback 0.10, got %f", table.Weight("kite"))
	}

	defaults := DefaultWeightTable()
	classes := defaults.Classes()
	if len(classes) != len(DefaultWeights) || classes[0] != "bicycle" {
		t.Fatalf("unexpected classes: %v", classes)
	}
	entries := defaults.Entries()
	entries["gun"] = 0
	if defaults.Weight("gun") != 0.90 {
		t.Fatalf("expected Entries to return a copy")
	}

	merged := defaults.WithOverrides(map[string]float64{"knife": 0.6})
	if merged.Weight("knife") != 0.6 || defaults.Weight("knife") != 0.8 {
		t.Fatalf("expected overrides to produce a new table")
	}
}

type stubDetector struct {
	dets []models.Detection
	err  error
}

func (d stubDetector) Detect(ctx context.Context, frame Frame) ([]models.Detection, error) {
	return d.dets, d.err
}

func TestScoreFrameOutcomes(t *testing.T) {
	s := NewScorer(DefaultWeightTable())
	frame := Frame{Ref: models.FrameRef{Source: "cam.mp4", Index: 30}, Image: []byte{1}}

	ok := s.ScoreFrame(context.Background(), stubDetector{dets: detections("fire", 1, 2)}, frame)
	if !ok.IsOK() || ok.Value.Frame.Index != 30 || ok.Value.ThreatLevel != models.ThreatHigh {
		t.Fatalf("unexpected ok outcome: %+v", ok)
	}

	failed := s.ScoreFrame(context.Background(), stubDetector{err: errors.New("model down")}, frame)
	if failed.Status != models.OutcomeFailed || failed.Err == nil {
		t.Fatalf("expected failed outcome, got %+v", failed)
	}

	skipped := s.ScoreFrame(context.Background(), stubDetector{}, Frame{})
	if skipped.Status != models.OutcomeSkipped {
		t.Fatalf("expected skipped outcome for empty frame, got %+v", skipped)
	}
}
