// Package config loads flowedit settings from YAML or TOML files with
// FLOWEDIT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for flowedit
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level" toml:"log_level" env:"FLOWEDIT_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" toml:"log_json" env:"FLOWEDIT_LOG_JSON"`
	Color    string `yaml:"color" toml:"color" env:"FLOWEDIT_COLOR"`

	// Quiet period after the last keystroke before typed text is committed
	TypingDebounce Duration `yaml:"typing_debounce" toml:"typing_debounce" env:"FLOWEDIT_TYPING_DEBOUNCE"`

	// Transport to a document host
	Host             string   `yaml:"host" toml:"host" env:"FLOWEDIT_HOST"`
	Codec            string   `yaml:"codec" toml:"codec" env:"FLOWEDIT_CODEC"`
	TransportTimeout Duration `yaml:"transport_timeout" toml:"transport_timeout" env:"FLOWEDIT_TRANSPORT_TIMEOUT"`

	// Interaction
	CapturePadding  float64 `yaml:"capture_padding" toml:"capture_padding" env:"FLOWEDIT_CAPTURE_PADDING"`
	HistoryCapacity int     `yaml:"history_capacity" toml:"history_capacity" env:"FLOWEDIT_HISTORY_CAPACITY"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		Color:            "auto",
		TypingDebounce:   Duration(800 * time.Millisecond),
		Codec:            "json",
		TransportTimeout: Duration(30 * time.Second),
		CapturePadding:   10,
		HistoryCapacity:  100,
	}
}

// globalConfigFilePath returns the global config file path (~/.config/flowedit/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "flowedit", "config.yaml")
	}
	return filepath.Join(home, ".config", "flowedit", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.flowedit.yaml)
func projectConfigFilePath() string {
	return ".flowedit.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.flowedit.yaml)
// 3. Global config (~/.config/flowedit/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{globalConfigFilePath(), projectConfigFilePath()} {
		if err := decodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
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

// LoadFromFile reads configuration from a specific file. Files ending in
// .toml are read as TOML, anything else as YAML.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := decodeFile(path, cfg); err != nil {
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

// decodeFile merges the file at path into cfg.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
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
	if v := os.Getenv("FLOWEDIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWEDIT_LOG_JSON"); v != "" {
		cfg.LogJSON = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("FLOWEDIT_COLOR"); v != "" {
		cfg.Color = v
	}
	if v := os.Getenv("FLOWEDIT_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("FLOWEDIT_CODEC"); v != "" {
		cfg.Codec = v
	}

	durations := []struct {
		env string
		dst *Duration
	}{
		{"FLOWEDIT_TYPING_DEBOUNCE", &cfg.TypingDebounce},
		{"FLOWEDIT_TRANSPORT_TIMEOUT", &cfg.TransportTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.env); v != "" {
			if err := d.dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("%s: %w", d.env, err)
			}
		}
	}

	if v := os.Getenv("FLOWEDIT_CAPTURE_PADDING"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FLOWEDIT_CAPTURE_PADDING: %w", err)
		}
		cfg.CapturePadding = f
	}
	if v := os.Getenv("FLOWEDIT_HISTORY_CAPACITY"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FLOWEDIT_HISTORY_CAPACITY: %w", err)
		}
		cfg.HistoryCapacity = i
	}
	return nil
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn or error)", c.LogLevel)
	}
	switch c.Color {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("invalid color: %s (must be auto, on or off)", c.Color)
	}
	switch c.Codec {
	case "json", "msgpack":
	default:
		return fmt.Errorf("invalid codec: %s (must be 'json' or 'msgpack')", c.Codec)
	}

	if c.TypingDebounce < 0 {
		return fmt.Errorf("typing_debounce must be non-negative")
	}
	if c.TransportTimeout <= 0 {
		return fmt.Errorf("transport_timeout must be positive")
	}
	if c.CapturePadding < 0 {
		return fmt.Errorf("capture_padding must be non-negative")
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history_capacity must be positive")
	}
	return nil
}
