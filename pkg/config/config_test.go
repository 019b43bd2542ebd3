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

	assert.Equal(t, "https://commons.wikimedia.org/w/api.php", cfg.Commons.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Commons.RequestTimeout)
	assert.Equal(t, 50, cfg.Scan.BatchSize)
	assert.Equal(t, 30, cfg.RateLimit.MaxEditsPerMinute)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.BaseSleep)
	assert.Equal(t, 19, cfg.Processing.MaxEdits)
	assert.Equal(t, "gps_scan.json", cfg.Processing.StateFile)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
commons:
  api_url: https://test.wikipedia.org/w/api.php
  user_agent: TestBot/1.0
scan:
  batch_size: 10
  author_filter: rodriguez
rate_limit:
  max_edits_per_minute: 5
  base_sleep: 2s
processing:
  max_edits: 3
  state_file: /tmp/test_state.json
logging:
  level: debug
`), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "https://test.wikipedia.org/w/api.php", cfg.Commons.APIURL)
	assert.Equal(t, "TestBot/1.0", cfg.Commons.UserAgent)
	assert.Equal(t, 10, cfg.Scan.BatchSize)
	assert.Equal(t, "rodriguez", cfg.Scan.AuthorFilter)
	assert.Equal(t, 5, cfg.RateLimit.MaxEditsPerMinute)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.BaseSleep)
	assert.Equal(t, 3, cfg.Processing.MaxEdits)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched fields keep their defaults
	assert.Equal(t, 30*time.Second, cfg.Commons.RequestTimeout)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COMMONS_USER", "EnvBot@geo")
	t.Setenv("COMMONS_PASS", "envsecret")
	t.Setenv("AWG_MAX_EDITS_PER_MIN", "7")
	t.Setenv("AWG_STATE_FILE", "/tmp/env_state.json")
	t.Setenv("AWG_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "EnvBot@geo", cfg.Commons.Username)
	assert.Equal(t, "envsecret", cfg.Commons.Password)
	assert.Equal(t, 7, cfg.RateLimit.MaxEditsPerMinute)
	assert.Equal(t, "/tmp/env_state.json", cfg.Processing.StateFile)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestMergeFlagsPrecedence(t *testing.T) {
	t.Setenv("AWG_STATE_FILE", "/tmp/env_state.json")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	cfg.MergeFlags(map[string]interface{}{
		"state-file": "/tmp/flag_state.json",
		"max-edits":  2,
		"dry-run":    true,
		"sleep":      time.Second,
	})

	assert.Equal(t, "/tmp/flag_state.json", cfg.Processing.StateFile)
	assert.Equal(t, 2, cfg.Processing.MaxEdits)
	assert.True(t, cfg.Processing.DryRun)
	assert.Equal(t, time.Second, cfg.RateLimit.BaseSleep)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty API URL", func(c *Config) { c.Commons.APIURL = "" }},
		{"empty user agent", func(c *Config) { c.Commons.UserAgent = "" }},
		{"zero timeout", func(c *Config) { c.Commons.RequestTimeout = 0 }},
		{"batch size too large", func(c *Config) { c.Scan.BatchSize = 51 }},
		{"batch size zero", func(c *Config) { c.Scan.BatchSize = 0 }},
		{"zero edit rate", func(c *Config) { c.RateLimit.MaxEditsPerMinute = 0 }},
		{"negative max edits", func(c *Config) { c.Processing.MaxEdits = -1 }},
		{"empty state file", func(c *Config) { c.Processing.StateFile = "" }},
		{"bogus log level", func(c *Config) { c.Logging.Level = "chatty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
