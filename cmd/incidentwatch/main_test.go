package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incidentwatch/config"
	"incidentwatch/pkg/models"
)

func TestParseLocation(t *testing.T) {
	loc, err := parseLocation("", "")
	if err != nil || loc != nil {
		t.Fatalf("expected nil location for empty input, got %v %v", loc, err)
	}
	if _, err := parseLocation("1.5", ""); err == nil {
		t.Fatalf("expected error when longitude is missing")
	}
	if _, err := parseLocation("north", "2"); err == nil {
		t.Fatalf("expected error for non-numeric latitude")
	}
	loc, err = parseLocation("40.7128", "-74.0060")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if loc.Lat != 40.7128 || loc.Lng != -74.0060 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestBuildSinksFileModes(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.IncidentWatch.Alerts.Output.Mode = "file"
	cfg.IncidentWatch.Alerts.Output.File.Path = filepath.Join(dir, "alerts.jsonl")
	cfg.IncidentWatch.Analyses.Output.Mode = "file"
	cfg.IncidentWatch.Analyses.Output.File.Path = filepath.Join(dir, "analyses.jsonl")

	sinks, err := buildSinks(cfg)
	if err != nil {
		t.Fatalf("build sinks: %v", err)
	}
	if sinks.Alerts == nil || sinks.Analyses == nil {
		t.Fatalf("expected both sinks to be configured")
	}
	alert := &models.Alert{AlertID: "a1", ThreatLevel: models.ThreatHigh}
	if err := sinks.Alerts.WriteAlerts([]*models.Alert{alert}); err != nil {
		t.Fatalf("write alert: %v", err)
	}
	if err := sinks.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(cfg.IncidentWatch.Alerts.Output.File.Path)
	if err != nil {
		t.Fatalf("read alerts: %v", err)
	}
	if !strings.Contains(string(data), `"alert_id":"a1"`) {
		t.Fatalf("expected alert in file, got %s", data)
	}
}

func TestBuildSinksNoneModes(t *testing.T) {
	cfg := &config.Config{}
	cfg.IncidentWatch.Alerts.Output.Mode = "none"
	cfg.IncidentWatch.Analyses.Output.Mode = "none"

	sinks, err := buildSinks(cfg)
	if err != nil {
		t.Fatalf("build sinks: %v", err)
	}
	if sinks.Alerts != nil || sinks.Analyses != nil {
		t.Fatalf("expected no sinks, got %+v", sinks)
	}
}

func TestBuildEngineAppliesScoringTables(t *testing.T) {
	dir := t.TempDir()
	tables := filepath.Join(dir, "tables.yaml")
	body := "weights:\n  drone: 0.6\nkeywords:\n  looting: 0.7\nincidents:\n  - type: violence\n    terms: [looting]\n"
	if err := os.WriteFile(tables, []byte(body), 0644); err != nil {
		t.Fatalf("write tables: %v", err)
	}

	cfg := &config.Config{}
	cfg.IncidentWatch.Scoring.TablesPath = tables
	config.ApplyDefaults(cfg)

	eng, err := buildEngine(cfg)
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	if got := eng.scorer.Weights().Weight("drone"); got != 0.6 {
		t.Fatalf("expected drone weight 0.6, got %v", got)
	}
	if got := eng.analyzer.Incidents().Classify("widespread looting downtown"); got != models.IncidentViolence {
		t.Fatalf("expected violence, got %s", got)
	}
}
