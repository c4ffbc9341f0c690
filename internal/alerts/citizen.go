package alerts

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"incidentwatch/pkg/models"
)

// citizenCrowd is the crowd phrase used when a report carries no visual evidence.
const citizenCrowd = "multiple"

// FromCitizenReport builds a MEDIUM alert for a report filed by a member of the public.
func FromCitizenReport(report models.CitizenReport, synth *Synthesizer, now time.Time) models.Alert {
	incidentType := models.ParseIncidentType(string(report.IncidentType))
	level := models.ThreatMedium
	return models.Alert{
		AlertID:      uuid.NewString(),
		Title:        fmt.Sprintf("Citizen Report: %s", incidentType),
		Description:  report.Description,
		Summary:      synth.Summary(incidentType, citizenCrowd, level.String()),
		ThreatLevel:  level,
		IncidentType: incidentType,
		Sources:      []string{"citizen_report:" + report.ID},
		Location:     report.Location,
		CreatedAt:    now,
	}
}
