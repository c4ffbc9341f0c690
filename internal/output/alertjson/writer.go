package alertjson

import (
	"incidentwatch/internal/logger"
	"incidentwatch/internal/metrics"
	"incidentwatch/internal/output/jsonl"
	"incidentwatch/pkg/models"
)

// Writer outputs alerts to a JSON lines file.
type Writer struct {
	out *jsonl.Writer[*models.Alert]
}

// NewWriter opens path for appending alerts.
func NewWriter(path string) (*Writer, error) {
	out, err := jsonl.Open[*models.Alert](path, false)
	if err != nil {
		return nil, err
	}
	logger.Infof("Alert JSON writer initialized: %s", path)
	return &Writer{out: out}, nil
}

// WriteAlerts writes a batch of alerts.
func (w *Writer) WriteAlerts(alerts []*models.Alert) error {
	if err := w.out.Write(alerts); err != nil {
		metrics.SinkErrors.WithLabelValues("alert_json").Inc()
		return err
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	return w.out.Close()
}
