package alertjson

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"incidentwatch/pkg/models"
)

func TestWriteAlertsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.jsonl")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	alerts := []*models.Alert{
		{AlertID: "a1", ThreatLevel: models.ThreatHigh, IncidentType: models.IncidentViolence, CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{AlertID: "a2", ThreatLevel: models.ThreatMedium, IncidentType: models.IncidentProtest},
	}
	if err := w.WriteAlerts(alerts); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []models.Alert
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var a models.Alert
		if err := json.Unmarshal(sc.Bytes(), &a); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		got = append(got, a)
	}
	if len(got) != 2 || got[0].ThreatLevel != models.ThreatHigh || got[1].AlertID != "a2" {
		t.Fatalf("unexpected alerts %+v", got)
	}
}
