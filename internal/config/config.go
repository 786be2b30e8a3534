package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how graphs are rendered.
type OutputFormat string

const (
	FormatText    OutputFormat = "text"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatMsgpack OutputFormat = "msgpack"
)

// Dir is the per-user and per-project configuration directory name.
const Dir = ".phpflow"

// Config holds all configuration for phpflow
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level" env:"PHPFLOW_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"PHPFLOW_LOG_JSON"`

	// Workers bounds the number of routines built concurrently.
	Workers int `yaml:"workers" env:"PHPFLOW_WORKERS"`

	OutputFormat OutputFormat `yaml:"output_format" env:"PHPFLOW_OUTPUT_FORMAT"`

	// Result cache
	CacheEnabled    bool   `yaml:"cache_enabled" env:"PHPFLOW_CACHE_ENABLED"`
	CachePath       string `yaml:"cache_path" env:"PHPFLOW_CACHE_PATH"`
	CacheMaxEntries int    `yaml:"cache_max_entries" env:"PHPFLOW_CACHE_MAX_ENTRIES"`

	// Analysis
	FoldConstants    bool `yaml:"fold_constants" env:"PHPFLOW_FOLD_CONSTANTS"`
	WarnUnreachable  bool `yaml:"warn_unreachable" env:"PHPFLOW_WARN_UNREACHABLE"`
	WarnUnusedLabels bool `yaml:"warn_unused_labels" env:"PHPFLOW_WARN_UNUSED_LABELS"`

	// Source discovery
	IgnoreFile string   `yaml:"ignore_file" env:"PHPFLOW_IGNORE_FILE"`
	Extensions []string `yaml:"extensions" env:"PHPFLOW_EXTENSIONS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		LogJSON:          false,
		Workers:          4,
		OutputFormat:     FormatText,
		CacheEnabled:     true,
		CachePath:        filepath.Join(Dir, "cache.msgpack"),
		CacheMaxEntries:  10000,
		FoldConstants:    false,
		WarnUnreachable:  true,
		WarnUnusedLabels: true,
		IgnoreFile:       ".phpflowignore",
		Extensions:       []string{".php"},
	}
}

// GlobalConfigFilePath returns ~/.phpflow/config.yaml
func GlobalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(Dir, "config.yaml")
	}
	return filepath.Join(home, Dir, "config.yaml")
}

// ProjectConfigFilePath returns ./.phpflow/config.yaml
func ProjectConfigFilePath() string {
	return filepath.Join(Dir, "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.phpflow/config.yaml)
// 3. Global config (~/.phpflow/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigFilePath(), ProjectConfigFilePath()} {
		if err := mergeFile(cfg, path, true); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeFile(cfg, path, false); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PHPFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if err := envBool("PHPFLOW_LOG_JSON", &cfg.LogJSON); err != nil {
		return err
	}
	if err := envInt("PHPFLOW_WORKERS", &cfg.Workers); err != nil {
		return err
	}
	if v := os.Getenv("PHPFLOW_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(strings.ToLower(v))
	}
	if err := envBool("PHPFLOW_CACHE_ENABLED", &cfg.CacheEnabled); err != nil {
		return err
	}
	if v := os.Getenv("PHPFLOW_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if err := envInt("PHPFLOW_CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries); err != nil {
		return err
	}
	if err := envBool("PHPFLOW_FOLD_CONSTANTS", &cfg.FoldConstants); err != nil {
		return err
	}
	if err := envBool("PHPFLOW_WARN_UNREACHABLE", &cfg.WarnUnreachable); err != nil {
		return err
	}
	if err := envBool("PHPFLOW_WARN_UNUSED_LABELS", &cfg.WarnUnusedLabels); err != nil {
		return err
	}
	if v := os.Getenv("PHPFLOW_IGNORE_FILE"); v != "" {
		cfg.IgnoreFile = v
	}
	if v := os.Getenv("PHPFLOW_EXTENSIONS"); v != "" {
		cfg.Extensions = nil
		for _, ext := range strings.Split(v, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				cfg.Extensions = append(cfg.Extensions, ext)
			}
		}
	}
	return nil
}

func envBool(name string, dst *bool) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("%s: invalid boolean %q", name, v)
	}
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", name, v)
	}
	*dst = i
	return nil
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn or error)", c.LogLevel)
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}

	switch c.OutputFormat {
	case FormatText, FormatJSON, FormatYAML, FormatMsgpack:
	default:
		return fmt.Errorf("invalid output_format: %s (must be text, json, yaml or msgpack)", c.OutputFormat)
	}

	if c.CacheEnabled {
		if c.CachePath == "" {
			return fmt.Errorf("cache_path is required when cache_enabled is true")
		}
		if c.CacheMaxEntries <= 0 {
			return fmt.Errorf("cache_max_entries must be positive")
		}
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	return nil
}
