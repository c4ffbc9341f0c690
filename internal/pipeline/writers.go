package pipeline

import (
	"errors"

	"incidentwatch/internal/logger"
	"incidentwatch/pkg/models"
)

// AlertWriter writes alert outputs.
type AlertWriter interface {
	WriteAlerts(alerts []*models.Alert) error
	Close() error
}

// AnalysisWriter writes per-item analysis records.
type AnalysisWriter interface {
	WriteAnalyses(records []*models.AnalysisRecord) error
	Close() error
}

// Sinks groups the outputs of a run. Nil writers are skipped.
type Sinks struct {
	Analyses AnalysisWriter
	Alerts   AlertWriter
}

// Close closes every configured writer.
func (s Sinks) Close() error {
	var errs []error
	if s.Alerts != nil {
		if err := s.Alerts.Close(); err != nil {
			logger.Errorf("Failed to close alert writer: %v", err)
			errs = append(errs, err)
		}
	}
	if s.Analyses != nil {
		if err := s.Analyses.Close(); err != nil {
			logger.Errorf("Failed to close analysis writer: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiAlertWriter fans alerts out to several writers.
type MultiAlertWriter []AlertWriter

// WriteAlerts writes to every writer and joins the failures.
func (m MultiAlertWriter) WriteAlerts(alerts []*models.Alert) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteAlerts(alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer.
func (m MultiAlertWriter) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
