package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	apperrors "studytrack/internal/platform/errors"
)

// EnvPrefix scopes environment overrides: STUDYTRACK_API_BASE_URL -> api.base_url.
const EnvPrefix = "STUDYTRACK_"

// DefaultFileName is looked up inside the data dir when no explicit path is given.
const DefaultFileName = "config.yaml"

type Config struct {
	DataDir  string         `koanf:"data_dir" yaml:"data_dir"`
	Storage  StorageConfig  `koanf:"storage" yaml:"storage"`
	API      APIConfig      `koanf:"api" yaml:"api"`
	Session  SessionConfig  `koanf:"session" yaml:"session"`
	Progress ProgressConfig `koanf:"progress" yaml:"progress"`
	Outbox   OutboxConfig   `koanf:"outbox" yaml:"outbox"`
	Notify   NotifyConfig   `koanf:"notify" yaml:"notify"`
	Logging  LoggingConfig  `koanf:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Journal  JournalConfig  `koanf:"journal" yaml:"journal"`
}

type StorageConfig struct {
	// Backend is file, sqlite, badger or memory.
	Backend string `koanf:"backend" yaml:"backend"`
	// Path defaults to <data_dir>/state.
	Path string `koanf:"path" yaml:"path"`
}

type APIConfig struct {
	BaseURL         string        `koanf:"base_url" yaml:"base_url"`
	Timeout         time.Duration `koanf:"timeout" yaml:"timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown" yaml:"breaker_cooldown"`
}

type SessionConfig struct {
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval" yaml:"heartbeat_interval"`
	StaleAfter        time.Duration `koanf:"stale_after" yaml:"stale_after"`
	MinLogDuration    time.Duration `koanf:"min_log_duration" yaml:"min_log_duration"`
}

type ProgressConfig struct {
	TimeThreshold     time.Duration `koanf:"time_threshold" yaml:"time_threshold"`
	PercentThreshold  float64       `koanf:"percent_threshold" yaml:"percent_threshold"`
	CompletionPercent float64       `koanf:"completion_percent" yaml:"completion_percent"`
}

type OutboxConfig struct {
	Capacity int `koanf:"capacity" yaml:"capacity"`
	// Policy is per_queue or shared.
	Policy string `koanf:"policy" yaml:"policy"`
}

type NotifyConfig struct {
	FailureInterval time.Duration `koanf:"failure_interval" yaml:"failure_interval"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

type JournalConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

func Default(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Storage: StorageConfig{Backend: "file"},
		API: APIConfig{
			BaseURL:         "http://127.0.0.1:8080/api",
			Timeout:         5 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Session: SessionConfig{
			HeartbeatInterval: 60 * time.Second,
			StaleAfter:        30 * time.Minute,
			MinLogDuration:    30 * time.Second,
		},
		Progress: ProgressConfig{
			TimeThreshold:     5 * time.Second,
			PercentThreshold:  5,
			CompletionPercent: 95,
		},
		Outbox:  OutboxConfig{Capacity: 50, Policy: "per_queue"},
		Notify:  NotifyConfig{FailureInterval: 10 * time.Second},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Journal: JournalConfig{Enabled: false},
	}
}

// Load layers defaults, then the YAML file (when present), then STUDYTRACK_*
// environment variables. An empty path means <dataDir>/config.yaml.
func Load(dataDir, path string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("%w: data dir is required", apperrors.ErrInvalidInput)
	}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(dataDir), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dataDir, DefaultFileName)
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	} else if explicit {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "state")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var sections = []string{"storage", "api", "session", "progress", "outbox", "notify", "logging", "metrics", "journal"}

// envKey maps STUDYTRACK_SESSION_HEARTBEAT_INTERVAL to session.heartbeat_interval.
// Only the first underscore after a known section becomes a dot.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

func (c Config) Validate() error {
	var problems []string
	switch c.Storage.Backend {
	case "file", "sqlite", "badger", "memory":
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not one of file|sqlite|badger|memory", c.Storage.Backend))
	}
	if c.API.BaseURL == "" {
		problems = append(problems, "api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		problems = append(problems, "api.timeout must be positive")
	}
	if c.Session.HeartbeatInterval <= 0 {
		problems = append(problems, "session.heartbeat_interval must be positive")
	}
	if c.Session.StaleAfter <= 0 {
		problems = append(problems, "session.stale_after must be positive")
	}
	if c.Session.MinLogDuration < 0 {
		problems = append(problems, "session.min_log_duration must not be negative")
	}
	if c.Progress.TimeThreshold <= 0 || c.Progress.PercentThreshold <= 0 {
		problems = append(problems, "progress thresholds must be positive")
	}
	if c.Progress.CompletionPercent <= 0 || c.Progress.CompletionPercent > 100 {
		problems = append(problems, "progress.completion_percent must be in (0, 100]")
	}
	if c.Outbox.Capacity <= 0 {
		problems = append(problems, "outbox.capacity must be positive")
	}
	if c.Outbox.Policy != "per_queue" && c.Outbox.Policy != "shared" {
		problems = append(problems, fmt.Sprintf("outbox.policy %q is not one of per_queue|shared", c.Outbox.Policy))
	}
	if c.Notify.FailureInterval <= 0 {
		problems = append(problems, "notify.failure_interval must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// RenderDefault returns the default configuration as YAML, with durations
// written in their string form so the file round-trips through Load.
func RenderDefault(dataDir string) ([]byte, error) {
	cfg := Default(dataDir)
	doc := map[string]any{
		"data_dir": cfg.DataDir,
		"storage":  map[string]any{"backend": cfg.Storage.Backend},
		"api": map[string]any{
			"base_url":         cfg.API.BaseURL,
			"timeout":          cfg.API.Timeout.String(),
			"breaker_failures": cfg.API.BreakerFailures,
			"breaker_cooldown": cfg.API.BreakerCooldown.String(),
		},
		"session": map[string]any{
			"heartbeat_interval": cfg.Session.HeartbeatInterval.String(),
			"stale_after":        cfg.Session.StaleAfter.String(),
			"min_log_duration":   cfg.Session.MinLogDuration.String(),
		},
		"progress": map[string]any{
			"time_threshold":     cfg.Progress.TimeThreshold.String(),
			"percent_threshold":  cfg.Progress.PercentThreshold,
			"completion_percent": cfg.Progress.CompletionPercent,
		},
		"outbox":  map[string]any{"capacity": cfg.Outbox.Capacity, "policy": cfg.Outbox.Policy},
		"notify":  map[string]any{"failure_interval": cfg.Notify.FailureInterval.String()},
		"logging": map[string]any{"level": cfg.Logging.Level, "format": cfg.Logging.Format},
		"metrics": map[string]any{"addr": cfg.Metrics.Addr},
		"journal": map[string]any{"enabled": cfg.Journal.Enabled},
	}
	raw, err := yamlv3.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	return raw, nil
}
