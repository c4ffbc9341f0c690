package models

import (
	"fmt"
	"time"
)

// Record kinds.
const (
	RecordPost  = "post"
	RecordFrame = "frame"
)

// AnalysisRecord is the flat row written to analysis sinks.
type AnalysisRecord struct {
	Timestamp      time.Time    `json:"ts"`
	Kind           string       `json:"kind"`
	Ref            string       `json:"ref"`
	Source         string       `json:"source"`
	ThreatLevel    ThreatLevel  `json:"threat_level"`
	ThreatScore    float64      `json:"threat_score"`
	IncidentType   IncidentType `json:"incident_type,omitempty"`
	SentimentLabel string       `json:"sentiment_label,omitempty"`
	PeopleCount    int          `json:"people_count"`
	WeaponCount    int          `json:"weapon_count"`
	FireCount      int          `json:"fire_count"`
	Lat            *float64     `json:"lat,omitempty"`
	Lng            *float64     `json:"lng,omitempty"`
	RuleIDs        []string     `json:"rule_ids,omitempty"`
}

// RecordFromText flattens a text assessment.
func RecordFromText(a TextAnalysis) *AnalysisRecord {
	rec := &AnalysisRecord{
		Timestamp:      a.AnalyzedAt,
		Kind:           RecordPost,
		Ref:            "social_post:" + a.PostID,
		Source:         a.Source,
		ThreatLevel:    a.ThreatLevel,
		ThreatScore:    a.ThreatScore,
		IncidentType:   a.IncidentType,
		SentimentLabel: a.SentimentLabel,
	}
	for _, hit := range a.RuleHits {
		rec.RuleIDs = append(rec.RuleIDs, hit.ID)
	}
	rec.setLocation(a.Location)
	return rec
}

// RecordFromFrame flattens a frame assessment.
func RecordFromFrame(a FrameAnalysis) *AnalysisRecord {
	rec := &AnalysisRecord{
		Timestamp:   a.AnalyzedAt,
		Kind:        RecordFrame,
		Ref:         fmt.Sprintf("cctv_frame:%s#%d", a.Frame.Source, a.Frame.Index),
		Source:      a.Frame.Source,
		ThreatLevel: a.ThreatLevel,
		ThreatScore: a.ThreatScore,
		PeopleCount: a.PeopleCount,
		WeaponCount: a.WeaponCount,
		FireCount:   a.FireCount,
	}
	rec.setLocation(a.Location)
	return rec
}

func (r *AnalysisRecord) setLocation(loc *Location) {
	if loc == nil {
		return
	}
	lat, lng := loc.Lat, loc.Lng
	r.Lat, r.Lng = &lat, &lng
}
