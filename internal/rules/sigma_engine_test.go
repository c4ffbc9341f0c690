package rules

import (
	"os"
	"path/filepath"
	"testing"

	"incidentwatch/pkg/models"
)

const parliamentRule = `title: Gathering near parliament
id: watch-001
status: experimental
level: high
logsource:
  product: social
detection:
  selection:
    Text|contains:
      - parliament
  filter:
    Source: test
  condition: selection and not filter
`

const windowsRule = `title: Sysmon process
id: win-001
logsource:
  product: windows
detection:
  selection:
    EventID: 1
  condition: selection
`

func writeRule(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("write rule: %v", err)
	}
}

func TestSigmaEngineMatchesPosts(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "parliament.yml", parliamentRule)
	writeRule(t, dir, "windows.yaml", windowsRule)
	writeRule(t, dir, "broken.yml", "title: [unterminated")
	writeRule(t, dir, "readme.txt", "ignored")

	engine, stats, err := NewSigmaEngine(dir)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if stats.TotalFiles != 3 || stats.Loaded != 1 || stats.SkippedDatasource != 1 || stats.SkippedInvalid != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	hits := engine.Match(models.SocialPost{ID: "p1", Text: "crowd at parliament now", Source: "twitter"})
	if len(hits) != 1 || hits[0] != (models.RuleHit{ID: "watch-001", Name: "Gathering near parliament", Level: "high"}) {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if hits := engine.Match(models.SocialPost{Text: "crowd at parliament now", Source: "test"}); hits != nil {
		t.Fatalf("expected filter to suppress hit, got %+v", hits)
	}
	if hits := engine.Match(models.SocialPost{Text: "quiet afternoon", Source: "twitter"}); hits != nil {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func TestSigmaEngineRejectsNonYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.txt")
	writeRule(t, filepath.Dir(path), "rule.txt", parliamentRule)
	if _, _, err := NewSigmaEngine(path); err == nil {
		t.Fatalf("expected error for non-yaml file")
	}
}

func TestNoopEngine(t *testing.T) {
	var e NoopEngine
	if hits := e.Match(models.SocialPost{Text: "anything"}); hits != nil {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}
