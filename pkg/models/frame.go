package models

import "time"

// Detection is one object instance reported by the detector.
type Detection struct {
	ClassLabel  string     `json:"class"`
	Confidence  float64    `json:"confidence"`
	BoundingBox [4]float64 `json:"bbox"`
}

// FrameRef identifies a frame inside its source video.
type FrameRef struct {
	Source string `json:"source"`
	Camera string `json:"camera,omitempty"`
	Index  int    `json:"index"`
}

// FrameAnalysis is the threat assessment of one sampled frame.
type FrameAnalysis struct {
	Frame           FrameRef    `json:"frame"`
	Location        *Location   `json:"location,omitempty"`
	Detections      []Detection `json:"detections"`
	PeopleCount     int         `json:"people_count"`
	VehicleCount    int         `json:"vehicle_count"`
	WeaponCount     int         `json:"weapon_count"`
	FireCount       int         `json:"fire_count"`
	ThreatScore     float64     `json:"threat_score"`
	ThreatLevel     ThreatLevel `json:"threat_level"`
	CrowdDensity    int         `json:"crowd_density"`
	AnomalyDetected bool        `json:"anomaly_detected"`
	AnalyzedAt      time.Time   `json:"analyzed_at"`
}
