package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	IncidentWatch IncidentWatchConfig `yaml:"incidentwatch"`
}

// IncidentWatchConfig is the project configuration.
type IncidentWatchConfig struct {
	Input       InputConfig       `yaml:"input"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	CCTV        CCTVConfig        `yaml:"cctv"`
	Inference   InferenceConfig   `yaml:"inference"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Rules       RulesConfig       `yaml:"rules"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Analyses    AnalysesConfig    `yaml:"analyses"`
	Store       StoreConfig       `yaml:"store"`
	Ops         OpsConfig         `yaml:"ops"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// InputConfig controls the input reader.
type InputConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis input.
type RedisConfig struct {
	Addr         string        `yaml:"addr" validate:"required,hostname_port"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db" validate:"gte=0"`
	Key          string        `yaml:"key" validate:"required"`
	BlockTimeout time.Duration `yaml:"block_timeout" validate:"gte=0"`
}

// PipelineConfig controls the streaming pipeline.
type PipelineConfig struct {
	Workers       int           `yaml:"workers" validate:"gte=1"`
	BatchSize     int           `yaml:"batch_size" validate:"gte=1"`
	FlushInterval time.Duration `yaml:"flush_interval" validate:"gt=0"`
}

// CCTVConfig controls video sampling.
type CCTVConfig struct {
	FrameInterval int     `yaml:"frame_interval" validate:"gt=0"`
	Workers       int     `yaml:"workers" validate:"gte=1"`
	MinConfidence float64 `yaml:"min_confidence" validate:"gte=0,lte=1"`
}

// InferenceConfig locates the model server endpoints.
type InferenceConfig struct {
	Detector   ClientConfig `yaml:"detector"`
	Classifier ClientConfig `yaml:"classifier"`
}

// ClientConfig configures one model-server client.
type ClientConfig struct {
	URL           string            `yaml:"url" validate:"required,url"`
	Timeout       time.Duration     `yaml:"timeout" validate:"gte=0"`
	RatePerSecond float64           `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int               `yaml:"burst" validate:"gte=0"`
	Headers       map[string]string `yaml:"headers"`
	Breaker       BreakerConfig     `yaml:"breaker"`
}

// BreakerConfig controls the collaborator circuit breaker.
type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval" validate:"gte=0"`
	OpenTimeout  time.Duration `yaml:"open_timeout" validate:"gte=0"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gte=0,lte=1"`
}

// ScoringConfig points at optional weight and keyword overrides.
type ScoringConfig struct {
	TablesPath string `yaml:"tables_path"`
}

// CorrelationConfig controls incident grouping.
type CorrelationConfig struct {
	Window        time.Duration `yaml:"window" validate:"gt=0"`
	// Cooldown and CellPrecision fall back to 5m and 2 when unset or zero.
	Cooldown      time.Duration `yaml:"cooldown" validate:"gt=0"`
	MaxItems      int           `yaml:"max_items" validate:"gte=1"`
	MinLevel      string        `yaml:"min_level" validate:"oneof=LOW MEDIUM HIGH low medium high"`
	CellPrecision int           `yaml:"cell_precision" validate:"gt=0,lte=6"`
	// S2Level switches location keys to s2 cells; 0 keeps the decimal grid.
	S2Level int `yaml:"s2_level" validate:"gte=0,lte=30"`
}

// RulesConfig controls watchlist rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// AlertsConfig controls alert output.
type AlertsConfig struct {
	Output AlertOutputConfig `yaml:"output"`
	// Persist also writes alerts into the Redis store.
	Persist bool `yaml:"persist"`
}

// AlertOutputConfig controls the alert sink.
type AlertOutputConfig struct {
	Mode string           `yaml:"mode" validate:"oneof=file http redis none"`
	File FileOutputConfig `yaml:"file"`
	HTTP HTTPOutputConfig `yaml:"http"`
}

// AnalysesConfig controls per-item analysis output.
type AnalysesConfig struct {
	Output AnalysisOutputConfig `yaml:"output"`
}

// AnalysisOutputConfig controls the analysis sink.
type AnalysisOutputConfig struct {
	Mode       string                 `yaml:"mode" validate:"oneof=file clickhouse none"` // file|clickhouse|none
	File       FileOutputConfig       `yaml:"file"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url" validate:"omitempty,url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout" validate:"gte=0"`
	Headers  map[string]string `yaml:"headers"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote output.
type HTTPOutputConfig struct {
	URL      string            `yaml:"url" validate:"omitempty,url"`
	Timeout  time.Duration     `yaml:"timeout" validate:"gte=0"`
	Headers  map[string]string `yaml:"headers"`
	MinLevel string            `yaml:"min_level" validate:"omitempty,oneof=LOW MEDIUM HIGH low medium high"`
}

// StoreConfig controls the Redis alert store.
type StoreConfig struct {
	Redis StoreRedisConfig `yaml:"redis"`
}

// StoreRedisConfig controls Redis access for alerts.
type StoreRedisConfig struct {
	Addr      string `yaml:"addr" validate:"required,hostname_port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"gte=0"`
	KeyPrefix string `yaml:"key_prefix"`
}

// OpsConfig controls the metrics and health endpoint.
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"required_if=Enabled true"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json console"`
}
