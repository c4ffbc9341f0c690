package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"incidentwatch/pkg/models"
)

// maxClassifierRunes bounds the text sent to the classifier.
const maxClassifierRunes = 512

// HTTPClassifier calls the model server's sentiment and threat endpoints.
type HTTPClassifier struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	guard   *Guard
}

// NewClassifier creates a classifier client.
func NewClassifier(cfg ClientConfig) (*HTTPClassifier, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("classifier URL is empty")
	}
	return &HTTPClassifier{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		headers: cfg.Headers,
		client:  &http.Client{},
		guard:   NewGuard("classifier", cfg),
	}, nil
}

// ClassifySentiment returns the sentiment label of text.
func (c *HTTPClassifier) ClassifySentiment(ctx context.Context, text string) (models.ClassifierResult, error) {
	return c.classify(ctx, "/sentiment", text)
}

// ClassifyThreat returns the offensive/hate label of text.
func (c *HTTPClassifier) ClassifyThreat(ctx context.Context, text string) (models.ClassifierResult, error) {
	return c.classify(ctx, "/threat", text)
}

func (c *HTTPClassifier) classify(ctx context.Context, path, text string) (models.ClassifierResult, error) {
	payload, err := json.Marshal(map[string]string{"text": models.TruncateText(text, maxClassifierRunes)})
	if err != nil {
		return models.ClassifierResult{}, fmt.Errorf("failed to marshal classifier request: %w", err)
	}

	var result models.ClassifierResult
	err = c.guard.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("classifier request failed: %w", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read classifier response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("classifier request failed with status %s", resp.Status)
		}

		result, err = decodeClassifierResult(body)
		return err
	})
	if err != nil {
		return models.ClassifierResult{}, err
	}
	return result, nil
}

// decodeClassifierResult accepts a single object or a ranked list and returns the top entry.
func decodeClassifierResult(body []byte) (models.ClassifierResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []models.ClassifierResult
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return models.ClassifierResult{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		if len(list) == 0 {
			return models.ClassifierResult{}, fmt.Errorf("%w: empty result list", ErrBadResponse)
		}
		return validResult(list[0])
	}

	var single models.ClassifierResult
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return models.ClassifierResult{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return validResult(single)
}

func validResult(r models.ClassifierResult) (models.ClassifierResult, error) {
	if r.Label == "" {
		return models.ClassifierResult{}, fmt.Errorf("%w: missing label", ErrBadResponse)
	}
	return r, nil
}
