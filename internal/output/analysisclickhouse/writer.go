package analysisclickhouse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"incidentwatch/internal/metrics"
	"incidentwatch/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// Writer inserts analysis records into ClickHouse over HTTP using JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "incident_analyses"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	base := strings.TrimRight(cfg.URL, "/")
	endpoint := base + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// WriteAnalyses inserts a batch of analysis records.
func (w *Writer) WriteAnalyses(records []*models.AnalysisRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := w.insert(records); err != nil {
		metrics.SinkErrors.WithLabelValues("analysis_clickhouse").Inc()
		return err
	}
	return nil
}

func (w *Writer) insert(records []*models.AnalysisRecord) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, rec := range records {
		if err := enc.Encode(toRow(rec)); err != nil {
			return fmt.Errorf("failed to marshal analysis record: %w", err)
		}
	}

	req, err := http.NewRequest(http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// row matches the incident_analyses table; DateTime64 columns take "YYYY-MM-DD hh:mm:ss.sss".
type row struct {
	Timestamp      string   `json:"ts"`
	Kind           string   `json:"kind"`
	Ref            string   `json:"ref"`
	Source         string   `json:"source"`
	ThreatLevel    string   `json:"threat_level"`
	ThreatScore    float64  `json:"threat_score"`
	IncidentType   string   `json:"incident_type"`
	SentimentLabel string   `json:"sentiment_label"`
	PeopleCount    int      `json:"people_count"`
	WeaponCount    int      `json:"weapon_count"`
	FireCount      int      `json:"fire_count"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	RuleIDs        []string `json:"rule_ids"`
}

func toRow(rec *models.AnalysisRecord) row {
	ruleIDs := rec.RuleIDs
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	return row{
		Timestamp:      rec.Timestamp.UTC().Format("2006-01-02 15:04:05.000"),
		Kind:           rec.Kind,
		Ref:            rec.Ref,
		Source:         rec.Source,
		ThreatLevel:    rec.ThreatLevel.String(),
		ThreatScore:    rec.ThreatScore,
		IncidentType:   string(rec.IncidentType),
		SentimentLabel: rec.SentimentLabel,
		PeopleCount:    rec.PeopleCount,
		WeaponCount:    rec.WeaponCount,
		FireCount:      rec.FireCount,
		Lat:            rec.Lat,
		Lng:            rec.Lng,
		RuleIDs:        ruleIDs,
	}
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, "`", "")
	return "`" + v + "`"
}
