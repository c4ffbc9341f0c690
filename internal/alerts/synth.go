package alerts

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"incidentwatch/pkg/models"
)

// CrowdUnknown is used when no frame evidence is available.
const CrowdUnknown = "unknown number of"

var summaryTemplates = map[models.IncidentType][]string{
	models.IncidentProtest: {
		"Protest activity detected with approximately {crowd_size} people. Threat level: {threat_level}.",
		"Crowd gathering identified as potential protest. Estimated {crowd_size} participants. {threat_level} threat.",
		"Public demonstration ongoing with {crowd_size} individuals. Monitoring recommended.",
	},
	models.IncidentViolence: {
		"Violent activity detected with weapons present. Immediate attention required. Threat level: {threat_level}.",
		"Physical altercation or violent behavior observed. {threat_level} threat level.",
		"Weapon-related incident reported. Law enforcement response recommended.",
	},
	models.IncidentAccident: {
		"Traffic accident detected involving multiple vehicles. Emergency services notified. Threat level: {threat_level}.",
		"Road incident reported with potential injuries. {threat_level} threat level.",
		"Vehicle collision observed. Medical assistance may be required.",
	},
	models.IncidentNaturalDisaster: {
		"Potential natural disaster situation unfolding. Threat level: {threat_level}.",
		"Emergency situation detected consistent with natural disaster. {threat_level} threat.",
		"Environmental hazard or disaster conditions observed.",
	},
	models.IncidentOther: {
		"Unusual activity detected in monitored area. Threat level: {threat_level}.",
		"Suspicious behavior or anomaly observed. {threat_level} threat level.",
		"Potential security concern identified in area.",
	},
}

// RandSource picks a template index in [0, n).
type RandSource interface {
	IntN(n int) int
}

// Synthesizer renders alert summaries. It is safe for concurrent use.
type Synthesizer struct {
	mu  sync.Mutex
	rnd RandSource
}

// NewSynthesizer creates a synthesizer over rnd; nil seeds from the clock.
func NewSynthesizer(rnd RandSource) *Synthesizer {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Synthesizer{rnd: rnd}
}

// NewSeededSynthesizer creates a synthesizer with a reproducible template sequence.
func NewSeededSynthesizer(seed uint64) *Synthesizer {
	return NewSynthesizer(rand.New(rand.NewPCG(seed, seed)))
}

// Summary renders one template for the incident type.
func (s *Synthesizer) Summary(incidentType models.IncidentType, crowdSize, threatLevel string) string {
	templates, ok := summaryTemplates[incidentType]
	if !ok {
		templates = summaryTemplates[models.IncidentOther]
	}

	s.mu.Lock()
	idx := s.rnd.IntN(len(templates))
	s.mu.Unlock()

	return strings.NewReplacer(
		"{crowd_size}", crowdSize,
		"{threat_level}", threatLevel,
	).Replace(templates[idx])
}

// Synthesize renders the detailed alert with corroboration clauses.
func (s *Synthesizer) Synthesize(incidentType models.IncidentType, level models.ThreatLevel, crowdSize string, postCount, cctvCount int) string {
	return Detail(s.Summary(incidentType, crowdSize, level.String()), postCount, cctvCount)
}

// Detail appends the social and CCTV corroboration clauses to summary.
func Detail(summary string, postCount, cctvCount int) string {
	var details []string
	if postCount > 0 {
		details = append(details, fmt.Sprintf("Supported by %d social media reports.", postCount))
	}
	if cctvCount > 0 {
		details = append(details, fmt.Sprintf("Confirmed by %d CCTV detections.", cctvCount))
	}
	if len(details) == 0 {
		return summary
	}
	return summary + " " + strings.Join(details, " ")
}

// CrowdEstimate buckets the largest crowd density seen across frames.
func CrowdEstimate(frames []models.FrameAnalysis) string {
	if len(frames) == 0 {
		return CrowdUnknown
	}
	maxCrowd := 0
	for _, f := range frames {
		if f.CrowdDensity > maxCrowd {
			maxCrowd = f.CrowdDensity
		}
	}
	switch {
	case maxCrowd > 100:
		return "large crowd of"
	case maxCrowd > 50:
		return "medium-sized crowd of"
	case maxCrowd > 10:
		return "small group of"
	default:
		return "few"
	}
}
