package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"LogLevel", cfg.LogLevel, "info"},
		{"Color", cfg.Color, "auto"},
		{"TypingDebounce", cfg.TypingDebounce.Std(), 800 * time.Millisecond},
		{"Codec", cfg.Codec, "json"},
		{"TransportTimeout", cfg.TransportTimeout.Std(), 30 * time.Second},
		{"CapturePadding", cfg.CapturePadding, 10.0},
		{"HistoryCapacity", cfg.HistoryCapacity, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\ntyping_debounce: 250ms\ncodec: msgpack\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.TypingDebounce.Std())
	assert.Equal(t, "msgpack", cfg.Codec)
	assert.Equal(t, 100, cfg.HistoryCapacity, "unset fields keep their defaults")
}

func TestLoadFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowedit.toml")
	body := "host = \"unix:/tmp/flowedit.sock\"\ntransport_timeout = \"5s\"\ncapture_padding = 4.5\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "unix:/tmp/flowedit.sock", cfg.Host)
	assert.Equal(t, 5*time.Second, cfg.TransportTimeout.Std())
	assert.Equal(t, 4.5, cfg.CapturePadding)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLOWEDIT_LOG_LEVEL", "warn")
	t.Setenv("FLOWEDIT_TYPING_DEBOUNCE", "1s")
	t.Setenv("FLOWEDIT_HISTORY_CAPACITY", "7")
	t.Setenv("FLOWEDIT_LOG_JSON", "yes")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.TypingDebounce.Std())
	assert.Equal(t, 7, cfg.HistoryCapacity)
	assert.True(t, cfg.LogJSON)
}

func TestEnvOverrideErrors(t *testing.T) {
	t.Setenv("FLOWEDIT_TRANSPORT_TIMEOUT", "soon")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := LoadFromFile(path)
	assert.ErrorContains(t, err, "FLOWEDIT_TRANSPORT_TIMEOUT")
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoadSearchOrder(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(project)

	global := filepath.Join(home, ".config", "flowedit", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(global), 0755))
	require.NoError(t, os.WriteFile(global, []byte("codec: msgpack\nlog_level: debug\n"), 0644))
	require.NoError(t, os.WriteFile(".flowedit.yaml", []byte("log_level: error\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "msgpack", cfg.Codec)
	assert.Equal(t, "error", cfg.LogLevel, "project config overrides global")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad color", func(c *Config) { c.Color = "sometimes" }, "color"},
		{"bad codec", func(c *Config) { c.Codec = "xml" }, "codec"},
		{"negative debounce", func(c *Config) { c.TypingDebounce = -1 }, "typing_debounce"},
		{"zero timeout", func(c *Config) { c.TransportTimeout = 0 }, "transport_timeout"},
		{"negative padding", func(c *Config) { c.CapturePadding = -1 }, "capture_padding"},
		{"zero history", func(c *Config) { c.HistoryCapacity = 0 }, "history_capacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errContains)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1:7070"

	require.NoError(t, cfg.Save(path))
	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
