package models

import (
	"fmt"
	"strings"
)

// ThreatLevel is the banded severity of an assessment.
type ThreatLevel int

const (
	ThreatLow ThreatLevel = iota
	ThreatMedium
	ThreatHigh
)

// String returns the upper-case level name.
func (l ThreatLevel) String() string {
	switch l {
	case ThreatHigh:
		return "HIGH"
	case ThreatMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// AtLeast reports whether l is the same as or above min.
func (l ThreatLevel) AtLeast(min ThreatLevel) bool {
	return l >= min
}

// ParseThreatLevel parses a level name case-insensitively.
func ParseThreatLevel(raw string) (ThreatLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW":
		return ThreatLow, nil
	case "MEDIUM":
		return ThreatMedium, nil
	case "HIGH":
		return ThreatHigh, nil
	default:
		return ThreatLow, fmt.Errorf("unknown threat level %q", raw)
	}
}

// MarshalText encodes the level as its name.
func (l ThreatLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *ThreatLevel) UnmarshalText(text []byte) error {
	v, err := ParseThreatLevel(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// IncidentType is the taxonomy label of an incident.
type IncidentType string

const (
	IncidentProtest         IncidentType = "protest"
	IncidentViolence        IncidentType = "violence"
	IncidentAccident        IncidentType = "accident"
	IncidentNaturalDisaster IncidentType = "natural_disaster"
	IncidentOther           IncidentType = "other"
)

// IncidentTypes lists all incident types in classification priority order.
var IncidentTypes = []IncidentType{
	IncidentProtest,
	IncidentViolence,
	IncidentAccident,
	IncidentNaturalDisaster,
	IncidentOther,
}

// ParseIncidentType maps a raw string to an incident type; unknown values become other.
func ParseIncidentType(raw string) IncidentType {
	v := IncidentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range IncidentTypes {
		if v == t {
			return t
		}
	}
	return IncidentOther
}

// Label returns the display label.
func (t IncidentType) Label() string {
	switch t {
	case IncidentProtest:
		return "Protest/Riot"
	case IncidentViolence:
		return "Violence"
	case IncidentAccident:
		return "Accident"
	case IncidentNaturalDisaster:
		return "Natural Disaster"
	default:
		return "Other"
	}
}
