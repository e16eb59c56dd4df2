package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusrank/focusrank/internal/ranking"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Recommender.NumberOfWindows)
	assert.Equal(t, ranking.Settings{
		NumberOfWindows:   3,
		DurationTimeframe: 10 * time.Minute,
		DurationInterval:  10 * time.Second,
	}, cfg.Recommender.Settings())
	assert.Equal(t, WeightsConfig{1, 1, 1, 1}, cfg.Recommender.Weights)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Config)
		wantErr    bool
		wantConfig bool
	}{
		{"valid default config", func(c *Config) {}, false, false},
		{"zero windows", func(c *Config) { c.Recommender.NumberOfWindows = 0 }, true, true},
		{"zero timeframe", func(c *Config) { c.Recommender.DurationTimeframeMinutes = 0 }, true, true},
		{"zero interval", func(c *Config) { c.Recommender.DurationIntervalSeconds = 0 }, true, true},
		{"interval above timeframe", func(c *Config) { c.Recommender.DurationIntervalSeconds = 3600 }, true, true},
		{"negative weight", func(c *Config) { c.Recommender.Weights.Frequency = -1 }, true, true},
		{"all weights zero", func(c *Config) { c.Recommender.Weights = WeightsConfig{} }, true, true},
		{"single weight", func(c *Config) { c.Recommender.Weights = WeightsConfig{TitleSimilarity: 2} }, false, false},
		{"zero queue", func(c *Config) { c.Journal.QueueSize = 0 }, true, false},
		{"negative retention", func(c *Config) { c.Journal.RetentionDays = -1 }, true, false},
		{"invalid port", func(c *Config) { c.Web.Port = 0 }, true, false},
		{"empty host", func(c *Config) { c.Web.Host = "" }, true, false},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, true, false},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantConfig, errors.Is(err, ranking.ErrInvalidConfig), "error: %v", err)
		})
	}
}

func TestSetters(t *testing.T) {
	cfg := Default()

	assert.NoError(t, cfg.SetNumberOfWindows(5))
	assert.Equal(t, 5, cfg.Recommender.NumberOfWindows)
	assert.Error(t, cfg.SetNumberOfWindows(0))
	assert.Equal(t, 5, cfg.Recommender.NumberOfWindows)

	assert.NoError(t, cfg.SetWebPort(8080))
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Error(t, cfg.SetWebPort(70000))

	assert.Error(t, cfg.SetDurationInterval(time.Millisecond))
	assert.NoError(t, cfg.SetDurationInterval(time.Minute))
	assert.Equal(t, 60, cfg.Recommender.DurationIntervalSeconds)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[recommender]
number_of_windows = 5
duration_timeframe_minutes = 30

[recommender.weights]
title_similarity = 0

[web]
port = 9999
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Recommender.NumberOfWindows)
	assert.Equal(t, 30*time.Minute, cfg.Recommender.Settings().DurationTimeframe)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Recommender.Settings().DurationInterval)
	assert.Equal(t, WeightsConfig{Duration: 1, Frequency: 1, MostRecentlyActive: 1}, cfg.Recommender.Weights)
	assert.Equal(t, 9999, cfg.Web.Port)
	assert.Equal(t, "localhost", cfg.Web.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[recommender\nnumber_of_windows = "), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Recommender.NumberOfWindows = 7
	cfg.Recommender.Weights.Duration = 0.5

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOCUSRANK_RECOMMENDER_NUMBER_OF_WINDOWS", "4")
	t.Setenv("FOCUSRANK_RECOMMENDER_WEIGHTS_MOST_RECENTLY_ACTIVE", "2.5")
	t.Setenv("FOCUSRANK_DATABASE_PATH", "/tmp/focusrank-test.db")
	t.Setenv("FOCUSRANK_WEB_PORT", "12345")
	t.Setenv("FOCUSRANK_JOURNAL_ENABLED", "false")
	t.Setenv("FOCUSRANK_DAEMON_PID_FILE", "/tmp/focusrank-test.pid")

	cfg := Default()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, 4, cfg.Recommender.NumberOfWindows)
	assert.Equal(t, 2.5, cfg.Recommender.Weights.MostRecentlyActive)
	assert.Equal(t, 1.0, cfg.Recommender.Weights.Duration)
	assert.Equal(t, "/tmp/focusrank-test.db", cfg.Database.Path)
	assert.Equal(t, 12345, cfg.Web.Port)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/focusrank-test.pid", cfg.Daemon.PIDFile)
	assert.Equal(t, "localhost", cfg.Web.Host)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	t.Setenv("FOCUSRANK_WEB_PORT", "not-a-port")
	assert.Error(t, LoadFromEnv(Default()))
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[recommender]\nnumber_of_windows = 6\n"), 0644))
	t.Setenv("FOCUSRANK_RECOMMENDER_NUMBER_OF_WINDOWS", "8")

	cfg, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Recommender.NumberOfWindows)
}

func TestNew_Invalid(t *testing.T) {
	t.Setenv("FOCUSRANK_RECOMMENDER_NUMBER_OF_WINDOWS", "0")
	_, err := New("")
	assert.True(t, errors.Is(err, ranking.ErrInvalidConfig))
}
