package models

import "time"

// Alert is a triaged, human-readable incident alert.
type Alert struct {
	AlertID      string       `json:"alert_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Summary      string       `json:"summary"`
	ThreatLevel  ThreatLevel  `json:"threat_level"`
	IncidentType IncidentType `json:"incident_type"`
	Sources      []string     `json:"sources"`
	Confirmed    bool         `json:"confirmed"`
	IncidentKey  string       `json:"incident_key,omitempty"`
	Location     *Location    `json:"location,omitempty"`
	Supersedes   string       `json:"supersedes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// CitizenReport is an incident reported directly by a member of the public.
type CitizenReport struct {
	ID            string       `json:"id"`
	Description   string       `json:"description"`
	IncidentType  IncidentType `json:"incident_type"`
	Location      *Location    `json:"location,omitempty"`
	ReporterEmail string       `json:"reporter_email,omitempty"`
}
