package analysisjson

import (
	"incidentwatch/internal/logger"
	"incidentwatch/internal/metrics"
	"incidentwatch/internal/output/jsonl"
	"incidentwatch/pkg/models"
)

// Writer outputs analysis records to a JSON lines file.
type Writer struct {
	out *jsonl.Writer[*models.AnalysisRecord]
}

// NewWriter opens path for appending analysis records.
func NewWriter(path string) (*Writer, error) {
	out, err := jsonl.Open[*models.AnalysisRecord](path, false)
	if err != nil {
		return nil, err
	}
	logger.Infof("Analysis JSON writer initialized: %s", path)
	return &Writer{out: out}, nil
}

// WriteAnalyses writes a batch of records.
func (w *Writer) WriteAnalyses(records []*models.AnalysisRecord) error {
	if err := w.out.Write(records); err != nil {
		metrics.SinkErrors.WithLabelValues("analysis_json").Inc()
		return err
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	return w.out.Close()
}
