package main

import (
	"fmt"
	"strings"

	"incidentwatch/config"
	"incidentwatch/internal/alerts"
	"incidentwatch/internal/inference"
	"incidentwatch/internal/logger"
	"incidentwatch/internal/output/alerthttp"
	"incidentwatch/internal/output/alertjson"
	"incidentwatch/internal/output/analysisclickhouse"
	"incidentwatch/internal/output/analysisjson"
	"incidentwatch/internal/pipeline"
	"incidentwatch/internal/rules"
	"incidentwatch/internal/social"
	"incidentwatch/internal/store"
	"incidentwatch/internal/visual"
	"incidentwatch/pkg/models"
)

// engine holds the scoring components shared by every subcommand.
type engine struct {
	analyzer   *social.Analyzer
	scorer     *visual.Scorer
	detector   *inference.HTTPDetector
	synth      *alerts.Synthesizer
	correlator *alerts.Correlator
}

func initLogger(cfg *config.Config) error {
	l := cfg.IncidentWatch.Logging
	return logger.Init(logger.Options{
		Enabled: l.Enabled,
		Level:   l.Level,
		File:    l.File,
		Console: l.Console,
		Format:  l.Format,
	})
}

func buildEngine(cfg *config.Config) (*engine, error) {
	c := cfg.IncidentWatch

	weights := visual.DefaultWeightTable()
	keywords := social.DefaultKeywordTable()
	var incidentRules []social.IncidentRule
	if strings.TrimSpace(c.Scoring.TablesPath) != "" {
		tables, err := config.LoadScoringTables(c.Scoring.TablesPath)
		if err != nil {
			return nil, err
		}
		weights = weights.WithOverrides(tables.Weights)
		keywords = keywords.WithOverrides(tables.Keywords)
		for _, r := range tables.Incidents {
			incidentRules = append(incidentRules, social.IncidentRule{
				Type:  models.ParseIncidentType(r.Type),
				Terms: r.Terms,
			})
		}
		logger.Infof("Scoring tables loaded from %s: weights=%d keywords=%d incident_rules=%d",
			c.Scoring.TablesPath, len(tables.Weights), len(tables.Keywords), len(tables.Incidents))
	}

	detector, err := inference.NewDetector(clientConfig(c.Inference.Detector), c.CCTV.MinConfidence)
	if err != nil {
		return nil, fmt.Errorf("create detector client: %w", err)
	}
	classifier, err := inference.NewClassifier(clientConfig(c.Inference.Classifier))
	if err != nil {
		return nil, fmt.Errorf("create classifier client: %w", err)
	}

	matcher, err := buildRules(c.Rules)
	if err != nil {
		return nil, err
	}

	minLevel, err := models.ParseThreatLevel(c.Correlation.MinLevel)
	if err != nil {
		return nil, fmt.Errorf("correlation.min_level: %w", err)
	}

	incidents := social.NewIncidentClassifier(incidentRules)
	synth := alerts.NewSynthesizer(nil)
	return &engine{
		analyzer: social.NewAnalyzer(social.NewScorer(keywords), incidents, classifier, matcher),
		scorer:   visual.NewScorer(weights),
		detector: detector,
		synth:    synth,
		correlator: alerts.NewCorrelator(alerts.Config{
			Window:        c.Correlation.Window,
			Cooldown:      c.Correlation.Cooldown,
			MaxItems:      c.Correlation.MaxItems,
			MinLevel:      minLevel,
			CellPrecision: c.Correlation.CellPrecision,
			S2Level:       c.Correlation.S2Level,
		}, synth, incidents),
	}, nil
}

func buildRules(cfg config.RulesConfig) (social.RuleMatcher, error) {
	if !cfg.Enabled {
		return &rules.NoopEngine{}, nil
	}
	sigmaEngine, stats, err := rules.NewSigmaEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load sigma rules from %s: %w", cfg.Path, err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedDatasource,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; watchlist tagging is effectively disabled")
	}
	return sigmaEngine, nil
}

func clientConfig(c config.ClientConfig) inference.ClientConfig {
	return inference.ClientConfig{
		URL:           c.URL,
		Timeout:       c.Timeout,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Burst,
		Headers:       c.Headers,
		Breaker: inference.BreakerConfig{
			MaxRequests:  c.Breaker.MaxRequests,
			Interval:     c.Breaker.Interval,
			OpenTimeout:  c.Breaker.OpenTimeout,
			MinRequests:  c.Breaker.MinRequests,
			FailureRatio: c.Breaker.FailureRatio,
		},
	}
}

func openStore(cfg *config.Config) (*store.RedisStore, error) {
	r := cfg.IncidentWatch.Store.Redis
	s, err := store.NewRedisStore(store.RedisConfig{
		Addr:      r.Addr,
		Password:  r.Password,
		DB:        r.DB,
		KeyPrefix: r.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open alert store: %w", err)
	}
	return s, nil
}

// buildSinks opens the configured analysis and alert writers.
func buildSinks(cfg *config.Config) (pipeline.Sinks, error) {
	var sinks pipeline.Sinks
	analyses, err := buildAnalysisWriter(cfg.IncidentWatch.Analyses.Output)
	if err != nil {
		return sinks, err
	}
	sinks.Analyses = analyses

	alertWriter, err := buildAlertWriter(cfg)
	if err != nil {
		sinks.Close()
		return pipeline.Sinks{}, err
	}
	sinks.Alerts = alertWriter
	return sinks, nil
}

func buildAnalysisWriter(out config.AnalysisOutputConfig) (pipeline.AnalysisWriter, error) {
	switch out.Mode {
	case "file":
		w, err := analysisjson.NewWriter(out.File.Path)
		if err != nil {
			return nil, fmt.Errorf("create analysis file writer: %w", err)
		}
		logger.Infof("Analysis output mode: file (%s)", out.File.Path)
		return w, nil
	case "clickhouse":
		ch := out.ClickHouse
		w, err := analysisclickhouse.NewWriter(analysisclickhouse.Config{
			URL:      ch.URL,
			Database: ch.Database,
			Table:    ch.Table,
			Username: ch.Username,
			Password: ch.Password,
			Timeout:  ch.Timeout,
			Headers:  ch.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("create analysis ClickHouse writer: %w", err)
		}
		logger.Infof("Analysis output mode: clickhouse (%s/%s.%s)", ch.URL, ch.Database, ch.Table)
		return w, nil
	case "none":
		logger.Infof("Analysis output disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown analysis output mode: %s", out.Mode)
	}
}

func buildAlertWriter(cfg *config.Config) (pipeline.AlertWriter, error) {
	a := cfg.IncidentWatch.Alerts
	var primary pipeline.AlertWriter
	switch a.Output.Mode {
	case "file":
		w, err := alertjson.NewWriter(a.Output.File.Path)
		if err != nil {
			return nil, fmt.Errorf("create alert file writer: %w", err)
		}
		primary = w
		logger.Infof("Alert output mode: file (%s)", a.Output.File.Path)
	case "http":
		minLevel := models.ThreatLow
		if a.Output.HTTP.MinLevel != "" {
			lvl, err := models.ParseThreatLevel(a.Output.HTTP.MinLevel)
			if err != nil {
				return nil, fmt.Errorf("alerts.output.http.min_level: %w", err)
			}
			minLevel = lvl
		}
		w, err := alerthttp.NewWriter(alerthttp.Config{
			URL:      a.Output.HTTP.URL,
			Timeout:  a.Output.HTTP.Timeout,
			Headers:  a.Output.HTTP.Headers,
			MinLevel: minLevel,
		})
		if err != nil {
			return nil, fmt.Errorf("create alert HTTP writer: %w", err)
		}
		primary = w
		logger.Infof("Alert output mode: http (%s)", a.Output.HTTP.URL)
	case "redis":
		s, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		logger.Infof("Alert output mode: redis (%s)", cfg.IncidentWatch.Store.Redis.Addr)
		return s, nil
	case "none":
	default:
		return nil, fmt.Errorf("unknown alert output mode: %s", a.Output.Mode)
	}

	if !a.Persist {
		if primary == nil {
			logger.Infof("Alert output disabled")
			return nil, nil
		}
		return primary, nil
	}
	s, err := openStore(cfg)
	if err != nil {
		if primary != nil {
			primary.Close()
		}
		return nil, err
	}
	logger.Infof("Alerts also persisted to redis (%s)", cfg.IncidentWatch.Store.Redis.Addr)
	if primary == nil {
		return s, nil
	}
	return pipeline.MultiAlertWriter{primary, s}, nil
}
