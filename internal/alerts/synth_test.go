package alerts

import (
	"strings"
	"testing"

	"incidentwatch/pkg/models"
)

type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

func TestDetailClauses(t *testing.T) {
	if got := Detail("", 3, 0); got != " Supported by 3 social media reports." {
		t.Fatalf("unexpected detail %q", got)
	}
	got := Detail("Base.", 2, 4)
	want := "Base. Supported by 2 social media reports. Confirmed by 4 CCTV detections."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := Detail("Base.", 0, 0); got != "Base." {
		t.Fatalf("expected summary unchanged, got %q", got)
	}
}

func TestSummarySubstitutesPlaceholders(t *testing.T) {
	s := NewSynthesizer(fixedRand(0))
	got := s.Summary(models.IncidentProtest, "small group of", "HIGH")
	want := "Protest activity detected with approximately small group of people. Threat level: HIGH."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSummaryUnknownTypeUsesOtherTemplates(t *testing.T) {
	s := NewSynthesizer(fixedRand(2))
	got := s.Summary(models.IncidentType("meteor"), "few", "LOW")
	if got != "Potential security concern identified in area." {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSeededSynthesizerIsReproducible(t *testing.T) {
	a := NewSeededSynthesizer(42)
	b := NewSeededSynthesizer(42)
	for i := 0; i < 10; i++ {
		x := a.Synthesize(models.IncidentViolence, models.ThreatHigh, "few", 1, 1)
		y := b.Synthesize(models.IncidentViolence, models.ThreatHigh, "few", 1, 1)
		if x != y {
			t.Fatalf("expected identical output at %d, got %q and %q", i, x, y)
		}
		if !strings.HasSuffix(x, "Supported by 1 social media reports. Confirmed by 1 CCTV detections.") {
			t.Fatalf("missing corroboration clauses: %q", x)
		}
	}
}

func TestCrowdEstimateBuckets(t *testing.T) {
	cases := []struct {
		crowd int
		want  string
	}{
		{0, "few"},
		{10, "few"},
		{11, "small group of"},
		{51, "medium-sized crowd of"},
		{101, "large crowd of"},
	}
	for _, tc := range cases {
		got := CrowdEstimate([]models.FrameAnalysis{{CrowdDensity: 3}, {CrowdDensity: tc.crowd}})
		if got != tc.want {
			t.Fatalf("crowd %d: expected %q, got %q", tc.crowd, tc.want, got)
		}
	}
	if got := CrowdEstimate(nil); got != CrowdUnknown {
		t.Fatalf("expected %q, got %q", CrowdUnknown, got)
	}
}
