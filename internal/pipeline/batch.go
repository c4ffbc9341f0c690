package pipeline

import (
	"context"
	"fmt"

	"incidentwatch/internal/alerts"
	"incidentwatch/internal/logger"
	"incidentwatch/internal/social"
	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

// BatchReport counts the outcome of one batch run.
type BatchReport struct {
	Processed   int  `json:"processed"`
	Skipped     int  `json:"skipped"`
	Failed      int  `json:"failed"`
	Anomalies   int  `json:"anomalies"`
	Alerts      int  `json:"alerts"`
	Interrupted bool `json:"interrupted"`
}

// String renders the report as key=value pairs.
func (r BatchReport) String() string {
	return fmt.Sprintf("ingested=%d skipped=%d failed=%d anomalies=%d alerts=%d", r.Processed, r.Skipped, r.Failed, r.Anomalies, r.Alerts)
}

// Add accumulates other into r.
func (r *BatchReport) Add(other BatchReport) {
	r.Processed += other.Processed
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Anomalies += other.Anomalies
	r.Alerts += other.Alerts
	r.Interrupted = r.Interrupted || other.Interrupted
}

// RunPosts analyzes posts in order, correlates them and writes the results.
// Per-post problems are counted; only sink failures are returned.
func RunPosts(ctx context.Context, analyzer *social.Analyzer, correlator *alerts.Correlator, posts []models.SocialPost, sinks Sinks) (BatchReport, error) {
	var report BatchReport
	var batch batchBuffer

	for i, post := range posts {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		outcome := analyzer.Analyze(ctx, post)
		switch outcome.Status {
		case models.OutcomeSkipped:
			report.Skipped++
			continue
		case models.OutcomeFailed:
			report.Failed++
			logger.Warnf("Post %s not analyzed (%s): %v", post.ID, outcome.Reason, outcome.Err)
			continue
		}

		report.Processed++
		if outcome.Value.ThreatLevel != models.ThreatLow {
			report.Anomalies++
		}
		before := len(batch.alerts)
		batch.add(workItem{text: &outcome.Value}, correlator)
		report.Alerts += len(batch.alerts) - before

		if (i+1)%100 == 0 {
			logger.Infof("Ingested %d posts...", report.Processed)
		}
	}

	return report, writeBatch(batch, sinks)
}

// RunVideo samples one frame source, correlates anomalous frames and writes the results.
func RunVideo(ctx context.Context, sampler *visual.Sampler, src visual.FrameSource, correlator *alerts.Correlator, sinks Sinks) (BatchReport, visual.SampleReport, error) {
	var batch batchBuffer

	sample := sampler.Run(ctx, src, func(a models.FrameAnalysis) error {
		batch.add(workItem{frame: &a}, correlator)
		return nil
	})

	report := BatchReport{
		Processed:   sample.Scored,
		Skipped:     sample.Skipped,
		Failed:      sample.Failed,
		Anomalies:   sample.Anomalies,
		Alerts:      len(batch.alerts),
		Interrupted: sample.Interrupted,
	}
	if sample.Err != nil {
		logger.Warnf("Video sampling stopped early: %v", sample.Err)
	}
	return report, sample, writeBatch(batch, sinks)
}

func writeBatch(batch batchBuffer, sinks Sinks) error {
	if sinks.Analyses != nil && len(batch.records) > 0 {
		if err := sinks.Analyses.WriteAnalyses(batch.records); err != nil {
			return fmt.Errorf("write analyses: %w", err)
		}
	}
	if sinks.Alerts != nil && len(batch.alerts) > 0 {
		if err := sinks.Alerts.WriteAlerts(batch.alerts); err != nil {
			return fmt.Errorf("write alerts: %w", err)
		}
	}
	return nil
}
