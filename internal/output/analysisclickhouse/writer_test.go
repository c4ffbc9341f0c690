package analysisclickhouse

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"incidentwatch/pkg/models"
)

func TestWriteAnalysesInsertsJSONEachRow(t *testing.T) {
	var query, body, user string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		user = r.Header.Get("X-ClickHouse-User")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
	}))
	defer srv.Close()

	w, err := NewWriter(Config{URL: srv.URL, Database: "ops", Username: "writer"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	rec := models.RecordFromFrame(models.FrameAnalysis{
		Frame:       models.FrameRef{Source: "cam.mp4", Index: 3},
		ThreatLevel: models.ThreatHigh,
		AnalyzedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	if err := w.WriteAnalyses([]*models.AnalysisRecord{rec}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if query != "INSERT INTO `ops`.`incident_analyses` FORMAT JSONEachRow" {
		t.Fatalf("unexpected query %q", query)
	}
	if user != "writer" {
		t.Fatalf("expected clickhouse user header, got %q", user)
	}
	for _, want := range []string{`"ts":"2024-05-01 12:00:00.000"`, `"threat_level":"HIGH"`, `"ref":"cctv_frame:cam.mp4#3"`, `"rule_ids":[]`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in body %s", want, body)
		}
	}
}

func TestWriteAnalysesSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Code: 60. Table does not exist", http.StatusNotFound)
	}))
	defer srv.Close()

	w, _ := NewWriter(Config{URL: srv.URL})
	err := w.WriteAnalyses([]*models.AnalysisRecord{{Kind: models.RecordPost}})
	if err == nil || !strings.Contains(err.Error(), "Table does not exist") {
		t.Fatalf("expected server message in error, got %v", err)
	}
}
