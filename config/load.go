package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. INCIDENTWATCH_CCTV__FRAME_INTERVAL sets cctv.frame_interval.
const EnvPrefix = "INCIDENTWATCH_"

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "INCIDENTWATCH_CONFIG"

// DefaultConfigPaths are searched in order when no path is given.
var DefaultConfigPaths = []string{
	"incidentwatch.yaml",
	"incidentwatch.yml",
	"config.yaml",
	"/etc/incidentwatch/config.yaml",
}

// LoadConfig reads the YAML file at path, applies environment overrides and defaults, and validates.
// An empty path searches ConfigPathEnvVar then DefaultConfigPaths; no file at all means defaults only.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps INCIDENTWATCH_A__B_C to incidentwatch.a.b_c.
func envKey(s string) string {
	if s == ConfigPathEnvVar {
		return ""
	}
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return "incidentwatch." + strings.ReplaceAll(key, "__", ".")
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	c := &cfg.IncidentWatch

	if c.Input.Redis.Addr == "" {
		c.Input.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Input.Redis.Key == "" {
		c.Input.Redis.Key = "incidentwatch:signals"
	}
	if c.Input.Redis.BlockTimeout == 0 {
		c.Input.Redis.BlockTimeout = 5 * time.Second
	}

	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = 100
	}
	if c.Pipeline.FlushInterval == 0 {
		c.Pipeline.FlushInterval = 2 * time.Second
	}

	if c.CCTV.FrameInterval == 0 {
		c.CCTV.FrameInterval = 30
	}
	if c.CCTV.Workers == 0 {
		c.CCTV.Workers = 1
	}
	if c.CCTV.MinConfidence == 0 {
		c.CCTV.MinConfidence = 0.5
	}

	for _, client := range []*ClientConfig{&c.Inference.Detector, &c.Inference.Classifier} {
		if client.URL == "" {
			client.URL = "http://127.0.0.1:8500"
		}
		if client.Timeout == 0 {
			client.Timeout = 10 * time.Second
		}
	}

	if c.Correlation.Window == 0 {
		c.Correlation.Window = 10 * time.Minute
	}
	if c.Correlation.Cooldown == 0 {
		c.Correlation.Cooldown = 5 * time.Minute
	}
	if c.Correlation.MaxItems == 0 {
		c.Correlation.MaxItems = 200
	}
	if c.Correlation.MinLevel == "" {
		c.Correlation.MinLevel = "MEDIUM"
	}
	if c.Correlation.CellPrecision == 0 {
		c.Correlation.CellPrecision = 2
	}

	if c.Alerts.Output.Mode == "" {
		c.Alerts.Output.Mode = "file"
	}
	if c.Alerts.Output.Mode == "file" && c.Alerts.Output.File.Path == "" {
		c.Alerts.Output.File.Path = "output/alerts.jsonl"
	}
	if c.Analyses.Output.Mode == "" {
		c.Analyses.Output.Mode = "file"
	}
	if c.Analyses.Output.Mode == "file" && c.Analyses.Output.File.Path == "" {
		c.Analyses.Output.File.Path = "output/analyses.jsonl"
	}

	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = c.Input.Redis.Addr
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = "incidentwatch"
	}

	if c.Ops.Listen == "" {
		c.Ops.Listen = ":9108"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	c := cfg.IncidentWatch
	switch c.Alerts.Output.Mode {
	case "file":
		if c.Alerts.Output.File.Path == "" {
			return fmt.Errorf("alerts.output.file.path is required for file mode")
		}
	case "http":
		if c.Alerts.Output.HTTP.URL == "" {
			return fmt.Errorf("alerts.output.http.url is required for http mode")
		}
	}
	if c.Analyses.Output.Mode == "clickhouse" && c.Analyses.Output.ClickHouse.URL == "" {
		return fmt.Errorf("analyses.output.clickhouse.url is required for clickhouse mode")
	}
	return nil
}
