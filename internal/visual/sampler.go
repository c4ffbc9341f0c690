package visual

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"incidentwatch/internal/logger"
	"incidentwatch/internal/metrics"
	"incidentwatch/pkg/models"
)

// FrameSource is an ordered, finite iterator of frames with stable 0-based indexes.
// Next returns io.EOF once exhausted; an exhausted source cannot be rewound.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// SampleReport summarizes one sampling run.
type SampleReport struct {
	FramesRead  int   `json:"frames_read"`
	Sampled     int   `json:"sampled"`
	Scored      int   `json:"scored"`
	Anomalies   int   `json:"anomalies"`
	Skipped     int   `json:"skipped"`
	Failed      int   `json:"failed"`
	Interrupted bool  `json:"interrupted"`
	Err         error `json:"-"`
}

// Sampler walks a frame source at a fixed stride and emits anomalous analyses in frame order.
type Sampler struct {
	scorer   *Scorer
	detector Detector
	interval int
	workers  int
}

// NewSampler creates a sampler. interval must be positive; workers <= 1 scores inline.
func NewSampler(scorer *Scorer, detector Detector, interval, workers int) (*Sampler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %d", interval)
	}
	if scorer == nil || detector == nil {
		return nil, fmt.Errorf("scorer and detector are required")
	}
	if workers < 1 {
		workers = 1
	}
	return &Sampler{scorer: scorer, detector: detector, interval: interval, workers: workers}, nil
}

// Run consumes src and calls emit for every anomalous analysis, preserving frame order.
// Read failures and cancellation end the run early with partial counts; an emit error stops it.
func (s *Sampler) Run(ctx context.Context, src FrameSource, emit func(models.FrameAnalysis) error) SampleReport {
	if s.workers == 1 {
		return s.runInline(ctx, src, emit)
	}
	return s.runParallel(ctx, src, emit)
}

// Collect runs the sampler and returns all anomalous analyses.
func (s *Sampler) Collect(ctx context.Context, src FrameSource) ([]models.FrameAnalysis, SampleReport) {
	var out []models.FrameAnalysis
	report := s.Run(ctx, src, func(a models.FrameAnalysis) error {
		out = append(out, a)
		return nil
	})
	return out, report
}

func (s *Sampler) runInline(ctx context.Context, src FrameSource, emit func(models.FrameAnalysis) error) SampleReport {
	var report SampleReport
	for pos := 0; ; pos++ {
		if ctx.Err() != nil {
			report.Interrupted = true
			report.Err = ctx.Err()
			return report
		}
		frame, err := src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warnf("Frame read failed after %d frames: %v", report.FramesRead, err)
				report.Interrupted = true
				report.Err = err
			}
			return report
		}
		report.FramesRead++
		if pos%s.interval != 0 {
			continue
		}
		if stop := s.handle(ctx, &report, frame.Ref, s.scorer.ScoreFrame(ctx, s.detector, frame), emit); stop {
			return report
		}
	}
}

type sampleJob struct {
	seq   int
	frame Frame
}

type sampleResult struct {
	seq     int
	ref     models.FrameRef
	outcome models.Outcome[models.FrameAnalysis]
}

func (s *Sampler) runParallel(parent context.Context, src FrameSource, emit func(models.FrameAnalysis) error) SampleReport {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan sampleJob, s.workers*2)
	results := make(chan sampleResult, s.workers*2)

	var framesRead int
	var readErr error
	go func() {
		defer close(jobs)
		seq := 0
		for pos := 0; ; pos++ {
			frame, err := src.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					readErr = err
				}
				return
			}
			framesRead++
			if pos%s.interval != 0 {
				continue
			}
			select {
			case jobs <- sampleJob{seq: seq, frame: frame}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- sampleResult{
					seq:     job.seq,
					ref:     job.frame.Ref,
					outcome: s.scorer.ScoreFrame(ctx, s.detector, job.frame),
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var report SampleReport
	pending := make(map[int]sampleResult)
	next := 0
	stopped := false
	for res := range results {
		pending[res.seq] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if stopped {
				continue
			}
			if s.handle(parent, &report, r.ref, r.outcome, emit) {
				stopped = true
				cancel()
			}
		}
	}

	report.FramesRead = framesRead
	if readErr != nil {
		logger.Warnf("Frame read failed after %d frames: %v", framesRead, readErr)
		report.Interrupted = true
		if report.Err == nil {
			report.Err = readErr
		}
	}
	if parent.Err() != nil && !report.Interrupted {
		report.Interrupted = true
		report.Err = parent.Err()
	}
	return report
}

// handle accounts for one sampled frame and reports whether the run must stop.
func (s *Sampler) handle(ctx context.Context, report *SampleReport, ref models.FrameRef, outcome models.Outcome[models.FrameAnalysis], emit func(models.FrameAnalysis) error) bool {
	if ctx.Err() != nil {
		report.Interrupted = true
		report.Err = ctx.Err()
		return true
	}
	report.Sampled++

	switch outcome.Status {
	case models.OutcomeSkipped:
		report.Skipped++
		metrics.FramesDropped.WithLabelValues("skipped").Inc()
		logger.Debugf("Skipped frame %s#%d: %s", ref.Source, ref.Index, outcome.Reason)
		return false
	case models.OutcomeFailed:
		report.Failed++
		metrics.FramesDropped.WithLabelValues("failed").Inc()
		logger.Warnf("Frame %s#%d not scored (%s): %v", ref.Source, ref.Index, outcome.Reason, outcome.Err)
		return false
	}

	analysis := outcome.Value
	report.Scored++
	metrics.FramesScored.WithLabelValues(analysis.ThreatLevel.String()).Inc()
	if !analysis.AnomalyDetected {
		return false
	}
	if err := emit(analysis); err != nil {
		report.Interrupted = true
		report.Err = fmt.Errorf("emit frame analysis: %w", err)
		return true
	}
	report.Anomalies++
	return false
}
