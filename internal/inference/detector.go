package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

// HTTPDetector calls the model server's object detection endpoint.
type HTTPDetector struct {
	endpoint      string
	minConfidence float64
	headers       map[string]string
	client        *http.Client
	guard         *Guard
}

type detectResponse struct {
	Detections []models.Detection `json:"detections"`
}

// NewDetector creates a detector client. Detections below minConfidence are dropped.
func NewDetector(cfg ClientConfig, minConfidence float64) (*HTTPDetector, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("detector URL is empty")
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/detect")
	if err != nil {
		return nil, fmt.Errorf("invalid detector URL: %w", err)
	}
	q := u.Query()
	q.Set("min_confidence", strconv.FormatFloat(minConfidence, 'f', -1, 64))
	u.RawQuery = q.Encode()

	return &HTTPDetector{
		endpoint:      u.String(),
		minConfidence: minConfidence,
		headers:       cfg.Headers,
		client:        &http.Client{},
		guard:         NewGuard("detector", cfg),
	}, nil
}

// Detect sends the frame image and returns the detections.
func (d *HTTPDetector) Detect(ctx context.Context, frame visual.Frame) ([]models.Detection, error) {
	var out []models.Detection
	err := d.guard.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(frame.Image))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		for k, v := range d.headers {
			req.Header.Set(k, v)
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return fmt.Errorf("detect request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("detect request failed with status %s", resp.Status)
		}

		var body detectResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("%w: decode detections: %v", ErrBadResponse, err)
		}
		out = out[:0]
		for _, det := range body.Detections {
			if det.Confidence >= d.minConfidence {
				out = append(out, det)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
