package pipeline

import (
	"context"
	"sync"
	"time"

	"incidentwatch/internal/alerts"
	inputredis "incidentwatch/internal/input/redis"
	"incidentwatch/internal/logger"
	"incidentwatch/internal/metrics"
	"incidentwatch/internal/social"
	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

// Source yields raw envelopes. Pop returns nil, nil when nothing arrived in time.
type Source interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

// Processor holds the per-signal analyzers.
type Processor struct {
	Analyzer *social.Analyzer
	Scorer   *visual.Scorer
	Detector visual.Detector
}

// Options tunes the streaming pipeline.
type Options struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
}

// RedisPipeline consumes signal envelopes, scores them and writes analyses and alerts.
type RedisPipeline struct {
	source     Source
	proc       Processor
	correlator *alerts.Correlator
	sinks      Sinks
	opts       Options
}

type workItem struct {
	text  *models.TextAnalysis
	frame *models.FrameAnalysis
}

// NewRedisPipeline creates a streaming pipeline.
func NewRedisPipeline(source Source, proc Processor, correlator *alerts.Correlator, sinks Sinks, opts Options) *RedisPipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	return &RedisPipeline{
		source:     source,
		proc:       proc,
		correlator: correlator,
		sinks:      sinks,
		opts:       opts,
	}
}

// Run processes envelopes until ctx is canceled, then drains and flushes.
func (p *RedisPipeline) Run(ctx context.Context) error {
	logger.Infof("Redis signal pipeline started (workers=%d)", p.opts.Workers)

	msgCh := make(chan []byte, p.opts.Workers*4)
	workCh := make(chan workItem, p.opts.Workers*4)

	go func() {
		defer close(msgCh)
		p.readLoop(ctx, msgCh)
	}()

	var workers sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			p.workerLoop(ctx, msgCh, workCh)
		}()
	}
	go func() {
		workers.Wait()
		close(workCh)
	}()

	p.writeLoop(ctx, workCh)
	logger.Infof("Redis signal pipeline stopped")
	return ctx.Err()
}

// Serve runs the pipeline under a supervisor.
func (p *RedisPipeline) Serve(ctx context.Context) error {
	return p.Run(ctx)
}

func (p *RedisPipeline) String() string {
	return "redis-pipeline"
}

// Close releases pipeline resources.
func (p *RedisPipeline) Close() error {
	sinkErr := p.sinks.Close()
	if p.source != nil {
		if err := p.source.Close(); err != nil {
			return err
		}
	}
	return sinkErr
}

func (p *RedisPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.source.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop redis message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if payload == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (p *RedisPipeline) workerLoop(ctx context.Context, in <-chan []byte, out chan<- workItem) {
	for payload := range in {
		item, ok := p.process(ctx, payload)
		if !ok {
			continue
		}
		out <- item
	}
}

func (p *RedisPipeline) process(ctx context.Context, payload []byte) (workItem, bool) {
	env, err := inputredis.Decode(payload)
	if err != nil {
		metrics.InputErrors.Inc()
		logger.Warnf("Failed to decode signal envelope: %v", err)
		return workItem{}, false
	}

	switch env.Kind {
	case inputredis.KindPost:
		if p.proc.Analyzer == nil {
			return workItem{}, false
		}
		outcome := p.proc.Analyzer.Analyze(ctx, *env.Post)
		if !outcome.IsOK() {
			return workItem{}, false
		}
		return workItem{text: &outcome.Value}, true

	case inputredis.KindFrame:
		if p.proc.Scorer == nil || p.proc.Detector == nil {
			return workItem{}, false
		}
		frame := env.Frame.ToFrame()
		outcome := p.proc.Scorer.ScoreFrame(ctx, p.proc.Detector, frame)
		switch outcome.Status {
		case models.OutcomeSkipped:
			metrics.FramesDropped.WithLabelValues("skipped").Inc()
			return workItem{}, false
		case models.OutcomeFailed:
			metrics.FramesDropped.WithLabelValues("failed").Inc()
			logger.Warnf("Frame %s#%d not scored (%s): %v", frame.Ref.Source, frame.Ref.Index, outcome.Reason, outcome.Err)
			return workItem{}, false
		}
		metrics.FramesScored.WithLabelValues(outcome.Value.ThreatLevel.String()).Inc()
		if !outcome.Value.AnomalyDetected {
			return workItem{}, false
		}
		return workItem{frame: &outcome.Value}, true
	}
	return workItem{}, false
}

func (p *RedisPipeline) writeLoop(ctx context.Context, in <-chan workItem) {
	ticker := time.NewTicker(p.opts.FlushInterval)
	defer ticker.Stop()

	var batch batchBuffer
	for {
		select {
		case <-ticker.C:
			batch.flush(ctx, p.sinks)
		case item, ok := <-in:
			if !ok {
				batch.flush(ctx, p.sinks)
				return
			}
			batch.add(item, p.correlator)
			if len(batch.records) >= p.opts.BatchSize {
				batch.flush(ctx, p.sinks)
			}
		}
	}
}

// batchBuffer accumulates records and alerts between flushes.
type batchBuffer struct {
	records []*models.AnalysisRecord
	alerts  []*models.Alert
	// owed[i] holds alerts the i-th alert writer has not accepted yet.
	owed [][]*models.Alert
}

func (b *batchBuffer) add(item workItem, correlator *alerts.Correlator) {
	var alert *models.Alert
	switch {
	case item.text != nil:
		b.records = append(b.records, models.RecordFromText(*item.text))
		if correlator != nil {
			alert = correlator.AddText(*item.text)
		}
	case item.frame != nil:
		b.records = append(b.records, models.RecordFromFrame(*item.frame))
		if correlator != nil {
			alert = correlator.AddFrame(*item.frame)
		}
	}
	if alert != nil {
		logger.Infof("Alert %s: %s [%s]", alert.AlertID, alert.Title, alert.ThreatLevel)
		b.alerts = append(b.alerts, alert)
	}
}

// flush writes pending batches, retrying until ctx ends. After cancellation one attempt is made.
// Each alert writer is retried on its own so writers that succeeded never see a batch twice.
func (b *batchBuffer) flush(ctx context.Context, sinks Sinks) {
	if sinks.Analyses != nil && len(b.records) > 0 {
		if retry(ctx, "analyses", func() error { return sinks.Analyses.WriteAnalyses(b.records) }) {
			b.records = nil
		}
	} else {
		b.records = nil
	}

	if sinks.Alerts == nil {
		b.alerts = nil
		return
	}
	writers := alertWriters(sinks.Alerts)
	if len(b.owed) != len(writers) {
		b.owed = make([][]*models.Alert, len(writers))
	}
	if len(b.alerts) > 0 {
		for i := range writers {
			b.owed[i] = append(b.owed[i], b.alerts...)
		}
		b.alerts = nil
	}
	for i, w := range writers {
		if len(b.owed[i]) == 0 {
			continue
		}
		pending := b.owed[i]
		if retry(ctx, "alerts", func() error { return w.WriteAlerts(pending) }) {
			b.owed[i] = nil
		}
	}
}

// alertWriters expands a MultiAlertWriter into its members.
func alertWriters(w AlertWriter) []AlertWriter {
	if m, ok := w.(MultiAlertWriter); ok {
		return m
	}
	return []AlertWriter{w}
}

func retry(ctx context.Context, what string, write func() error) bool {
	for {
		err := write()
		if err == nil {
			return true
		}
		logger.Errorf("Failed to write %s: %v", what, err)
		if ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}
