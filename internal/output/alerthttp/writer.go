package alerthttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"incidentwatch/internal/metrics"
	"incidentwatch/pkg/models"
)

// Writer sends alerts to a remote HTTP endpoint.
type Writer struct {
	url      string
	headers  map[string]string
	minLevel models.ThreatLevel
	client   *http.Client
}

// Config configures the HTTP writer.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
	// MinLevel drops alerts below this level before posting.
	MinLevel models.ThreatLevel
}

// NewWriter creates an HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("http alert URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		url:      cfg.URL,
		headers:  cfg.Headers,
		minLevel: cfg.MinLevel,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// WriteAlerts posts a batch of alerts as one JSON array.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	batch := make([]*models.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a != nil && a.ThreatLevel.AtLeast(w.minLevel) {
			batch = append(batch, a)
		}
	}
	if len(batch) == 0 {
		return nil
	}

	if err := w.post(context.Background(), batch); err != nil {
		metrics.SinkErrors.WithLabelValues("alert_http").Inc()
		return err
	}
	return nil
}

func (w *Writer) post(ctx context.Context, batch []*models.Alert) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http request failed with status %s", resp.Status)
	}
	return nil
}

// Close releases HTTP resources.
func (w *Writer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
