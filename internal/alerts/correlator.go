package alerts

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"incidentwatch/internal/metrics"
	"incidentwatch/pkg/models"
)

// Config controls incident correlation.
type Config struct {
	Window        time.Duration
	Cooldown      time.Duration
	MaxItems      int
	MinLevel      models.ThreatLevel
	CellPrecision int
	// S2Level keys located evidence by s2 cell when positive.
	S2Level int
}

// IncidentRanker orders incident types by classification priority.
type IncidentRanker interface {
	Priority(t models.IncidentType) int
}

// Correlator groups assessments by incident key over a sliding window and emits fused alerts.
type Correlator struct {
	mu     sync.Mutex
	cfg    Config
	synth  *Synthesizer
	ranker IncidentRanker
	byKey  map[string]*incidentState
	// lastSweep is when idle keys were last dropped.
	lastSweep time.Time
	now       func() time.Time
	newID  func() string
}

type incidentState struct {
	items     []evidence
	lastAlert time.Time
}

type evidence struct {
	at    time.Time
	text  *models.TextAnalysis
	frame *models.FrameAnalysis
}

// NewCorrelator creates a correlator.
func NewCorrelator(cfg Config, synth *Synthesizer, ranker IncidentRanker) *Correlator {
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 200
	}
	if cfg.CellPrecision <= 0 {
		cfg.CellPrecision = 2
	}
	if synth == nil {
		synth = NewSynthesizer(nil)
	}
	return &Correlator{
		cfg:    cfg,
		synth:  synth,
		ranker: ranker,
		byKey:  make(map[string]*incidentState),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// TextKey returns the incident key of a text assessment.
func (c *Correlator) TextKey(a models.TextAnalysis) string {
	if a.Location != nil {
		return c.cellKey(*a.Location)
	}
	source := strings.TrimSpace(a.Source)
	if source == "" {
		source = "unknown"
	}
	return "source:" + source
}

// FrameKey returns the incident key of a frame assessment.
func (c *Correlator) FrameKey(a models.FrameAnalysis) string {
	if a.Location != nil {
		return c.cellKey(*a.Location)
	}
	if a.Frame.Camera != "" {
		return "camera:" + a.Frame.Camera
	}
	return "video:" + a.Frame.Source
}

func (c *Correlator) cellKey(loc models.Location) string {
	if c.cfg.S2Level > 0 {
		return loc.S2Cell(c.cfg.S2Level)
	}
	return loc.Cell(c.cfg.CellPrecision)
}

// AddText ingests a text assessment and returns an alert if one is triggered.
func (c *Correlator) AddText(a models.TextAnalysis) *models.Alert {
	return c.add(c.TextKey(a), evidence{at: a.AnalyzedAt, text: &a}, a.ThreatLevel != models.ThreatLow)
}

// AddFrame ingests a frame assessment and returns an alert if one is triggered.
func (c *Correlator) AddFrame(a models.FrameAnalysis) *models.Alert {
	return c.add(c.FrameKey(a), evidence{at: a.AnalyzedAt, frame: &a}, a.AnomalyDetected)
}

func (c *Correlator) add(key string, ev evidence, anomalous bool) *models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.at.IsZero() {
		ev.at = c.now()
	}
	state := c.byKey[key]
	if state == nil {
		state = &incidentState{}
		c.byKey[key] = state
	}
	state.items = append(state.items, ev)
	c.prune(state, ev.at)
	c.sweep(ev.at)

	if !anomalous {
		return nil
	}

	texts, frames := split(state.items)
	fused := FuseDetail(texts, frames)
	if !fused.Level.AtLeast(c.cfg.MinLevel) {
		return nil
	}
	if !state.lastAlert.IsZero() && ev.at.Sub(state.lastAlert) < c.cfg.Cooldown {
		return nil
	}

	alert := c.build(key, fused.Level, texts, frames, ev.at)
	state.lastAlert = ev.at
	metrics.AlertsEmitted.WithLabelValues(alert.ThreatLevel.String(), string(alert.IncidentType)).Inc()
	return alert
}

// Keys returns the number of tracked incident keys.
func (c *Correlator) Keys() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

// sweep drops keys whose evidence left the window and whose cooldown has passed.
// It runs at most once per window.
func (c *Correlator) sweep(now time.Time) {
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < c.cfg.Window {
		return
	}
	c.lastSweep = now
	cutoff := now.Add(-c.cfg.Window)
	for key, state := range c.byKey {
		if state.idle(cutoff, now, c.cfg.Cooldown) {
			delete(c.byKey, key)
		}
	}
}

func (s *incidentState) idle(cutoff, now time.Time, cooldown time.Duration) bool {
	for _, it := range s.items {
		if !it.at.Before(cutoff) {
			return false
		}
	}
	return s.lastAlert.IsZero() || now.Sub(s.lastAlert) >= cooldown
}

func (c *Correlator) prune(state *incidentState, now time.Time) {
	cutoff := now.Add(-c.cfg.Window)
	idx := 0
	for idx < len(state.items) {
		if !state.items[idx].at.Before(cutoff) {
			break
		}
		idx++
	}
	if idx > 0 {
		state.items = state.items[idx:]
	}
	if len(state.items) > c.cfg.MaxItems {
		state.items = state.items[len(state.items)-c.cfg.MaxItems:]
	}
}

func (c *Correlator) build(key string, level models.ThreatLevel, texts []models.TextAnalysis, frames []models.FrameAnalysis, at time.Time) *models.Alert {
	incidentType := c.dominantType(texts, frames)
	summary := c.synth.Summary(incidentType, CrowdEstimate(frames), level.String())

	return &models.Alert{
		AlertID:      c.newID(),
		Title:        fmt.Sprintf("%s alert: %s", incidentType.Label(), key),
		Description:  Detail(summary, len(texts), len(frames)),
		Summary:      summary,
		ThreatLevel:  level,
		IncidentType: incidentType,
		Sources:      sourceRefs(texts, frames),
		IncidentKey:  key,
		Location:     firstLocation(texts, frames),
		CreatedAt:    at,
	}
}

// dominantType picks the most frequent post incident type, ties broken by priority.
// Frame-only windows infer the type from what the detector saw.
func (c *Correlator) dominantType(texts []models.TextAnalysis, frames []models.FrameAnalysis) models.IncidentType {
	if len(texts) == 0 {
		return frameIncidentType(frames)
	}
	counts := make(map[models.IncidentType]int)
	for _, t := range texts {
		counts[t.IncidentType]++
	}
	best := models.IncidentOther
	bestCount := 0
	for _, t := range models.IncidentTypes {
		n := counts[t]
		if n == 0 {
			continue
		}
		if n > bestCount || (n == bestCount && c.priority(t) < c.priority(best)) {
			best, bestCount = t, n
		}
	}
	return best
}

func (c *Correlator) priority(t models.IncidentType) int {
	if c.ranker == nil {
		for i, v := range models.IncidentTypes {
			if v == t {
				return i
			}
		}
		return len(models.IncidentTypes)
	}
	return c.ranker.Priority(t)
}

func frameIncidentType(frames []models.FrameAnalysis) models.IncidentType {
	weapons, fire := 0, 0
	for _, f := range frames {
		weapons += f.WeaponCount
		fire += f.FireCount
	}
	switch {
	case weapons > 0:
		return models.IncidentViolence
	case fire > 0:
		return models.IncidentNaturalDisaster
	default:
		return models.IncidentOther
	}
}

func split(items []evidence) ([]models.TextAnalysis, []models.FrameAnalysis) {
	var texts []models.TextAnalysis
	var frames []models.FrameAnalysis
	for _, it := range items {
		if it.text != nil {
			texts = append(texts, *it.text)
		}
		if it.frame != nil {
			frames = append(frames, *it.frame)
		}
	}
	return texts, frames
}

func sourceRefs(texts []models.TextAnalysis, frames []models.FrameAnalysis) []string {
	out := make([]string, 0, len(texts)+len(frames))
	for _, t := range texts {
		if t.PostID != "" {
			out = append(out, "social_post:"+t.PostID)
		}
	}
	for _, f := range frames {
		out = append(out, fmt.Sprintf("cctv_frame:%s#%d", f.Frame.Source, f.Frame.Index))
	}
	return out
}

func firstLocation(texts []models.TextAnalysis, frames []models.FrameAnalysis) *models.Location {
	for _, t := range texts {
		if t.Location != nil {
			loc := *t.Location
			return &loc
		}
	}
	for _, f := range frames {
		if f.Location != nil {
			loc := *f.Location
			return &loc
		}
	}
	return nil
}
