// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: environment variables > config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoTargets is returned by Validate when no process tree is configured.
var ErrNoTargets = errors.New("at least one target is required")

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "15s", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Targets    []Target         `yaml:"targets"`
	Spool      SpoolConfig      `yaml:"spool"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CollectionConfig holds sampling settings.
type CollectionConfig struct {
	Interval      Duration `yaml:"interval"`
	BatchInterval Duration `yaml:"batch_interval"`
	TickTimeout   Duration `yaml:"tick_timeout"`
}

// Target names one monitored process tree. Exactly one of PID and PIDFile
// must be set.
type Target struct {
	Name    string `yaml:"name"`
	PID     int32  `yaml:"pid,omitempty"`
	PIDFile string `yaml:"pid_file,omitempty"`
}

// SpoolConfig holds the on-disk snapshot spool settings.
type SpoolConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration. It has no targets.
func DefaultConfig() *Config {
	return &Config{
		Collection: CollectionConfig{
			Interval:      Duration{15 * time.Second},
			BatchInterval: Duration{1 * time.Minute},
			TickTimeout:   Duration{5 * time.Second},
		},
		Spool: SpoolConfig{
			Dir:       "./spool",
			MaxSizeMB: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "./treewatch.log",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take highest precedence and override values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	if level := os.Getenv("TREEWATCH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if dir := os.Getenv("TREEWATCH_SPOOL_DIR"); dir != "" {
		cfg.Spool.Dir = dir
	}
	if raw := os.Getenv("TREEWATCH_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("TREEWATCH_INTERVAL: %w", err)
		}
		cfg.Collection.Interval = Duration{d}
	}
	return nil
}

// Validate checks that the configuration can drive the agent.
func (c *Config) Validate() error {
	if c.Collection.Interval.Duration <= 0 {
		return fmt.Errorf("collection interval must be positive (got: %s)", c.Collection.Interval.Duration)
	}
	if c.Collection.BatchInterval.Duration <= 0 {
		return fmt.Errorf("batch interval must be positive (got: %s)", c.Collection.BatchInterval.Duration)
	}
	if t := c.Collection.TickTimeout.Duration; t <= 0 || t > c.Collection.Interval.Duration {
		return fmt.Errorf("tick timeout must be positive and at most the interval (got: %s)", t)
	}
	if c.Spool.Dir == "" {
		return fmt.Errorf("spool directory is required")
	}
	if c.Spool.MaxSizeMB <= 0 {
		return fmt.Errorf("spool size limit must be positive (got: %d)", c.Spool.MaxSizeMB)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if len(c.Targets) == 0 {
		return ErrNoTargets
	}
	seen := make(map[string]struct{}, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("target %d: name is required", i)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("target %q: duplicate name", t.Name)
		}
		seen[t.Name] = struct{}{}

		switch {
		case t.PID != 0 && t.PIDFile != "":
			return fmt.Errorf("target %q: set either pid or pid_file, not both", t.Name)
		case t.PID == 0 && t.PIDFile == "":
			return fmt.Errorf("target %q: pid or pid_file is required", t.Name)
		case t.PID < 0:
			return fmt.Errorf("target %q: invalid pid %d", t.Name, t.PID)
		}
	}
	return nil
}

// ResolvePID returns the configured pid, reading it from PIDFile if needed.
func (t Target) ResolvePID() (int32, error) {
	if t.PIDFile == "" {
		if t.PID <= 0 {
			return 0, fmt.Errorf("target %q: invalid pid %d", t.Name, t.PID)
		}
		return t.PID, nil
	}

	data, err := os.ReadFile(t.PIDFile)
	if err != nil {
		return 0, fmt.Errorf("target %q: reading pid file: %w", t.Name, err)
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("target %q: pid file %s does not hold a pid", t.Name, t.PIDFile)
	}
	return int32(pid), nil
}
