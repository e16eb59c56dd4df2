package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/focusrank/focusrank/internal/logging"
	"github.com/focusrank/focusrank/internal/ranking"
)

// Config holds all application configuration
type Config struct {
	// Recommender configuration
	Recommender RecommenderConfig `toml:"recommender"`

	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Journal configuration
	Journal JournalConfig `toml:"journal"`

	// Daemon configuration
	Daemon DaemonConfig `toml:"daemon"`

	// Web server configuration
	Web WebConfig `toml:"web"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`
}

// RecommenderConfig holds the scoring parameters
type RecommenderConfig struct {
	NumberOfWindows          int           `toml:"number_of_windows" split_words:"true"`
	DurationTimeframeMinutes int           `toml:"duration_timeframe_minutes" split_words:"true"`
	DurationIntervalSeconds  int           `toml:"duration_interval_seconds" split_words:"true"`
	Weights                  WeightsConfig `toml:"weights"`
}

// WeightsConfig holds the weight of each model in the merged score
type WeightsConfig struct {
	Duration           float64 `toml:"duration" split_words:"true"`
	Frequency          float64 `toml:"frequency" split_words:"true"`
	MostRecentlyActive float64 `toml:"most_recently_active" split_words:"true"`
	TitleSimilarity    float64 `toml:"title_similarity" split_words:"true"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string `toml:"path" split_words:"true"` // Empty means ~/.config/focusrank/focusrank.db
}

// JournalConfig holds window event journal configuration
type JournalConfig struct {
	Enabled       bool `toml:"enabled" split_words:"true"`
	QueueSize     int  `toml:"queue_size" split_words:"true"`
	RetentionDays int  `toml:"retention_days" split_words:"true"` // 0 keeps everything
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `toml:"pid_file" split_words:"true"`
	LogFile string `toml:"log_file" split_words:"true"`
}

// WebConfig holds web server configuration
type WebConfig struct {
	Enabled bool   `toml:"enabled" split_words:"true"`
	Host    string `toml:"host" split_words:"true"`
	Port    int    `toml:"port" split_words:"true"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string `toml:"level" split_words:"true"`
	Development bool   `toml:"development" split_words:"true"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Recommender: RecommenderConfig{
			NumberOfWindows:          3,
			DurationTimeframeMinutes: 10,
			DurationIntervalSeconds:  10,
			Weights: WeightsConfig{
				Duration:           1,
				Frequency:          1,
				MostRecentlyActive: 1,
				TitleSimilarity:    1,
			},
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Journal: JournalConfig{
			Enabled:       true,
			QueueSize:     256,
			RetentionDays: 30,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/focusrank-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/focusrank-%d.log", os.Getuid()),
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    10000 + os.Getuid(), // Default port based on user ID
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Settings returns the model settings described by the recommender section
func (r RecommenderConfig) Settings() ranking.Settings {
	return ranking.Settings{
		NumberOfWindows:   r.NumberOfWindows,
		DurationTimeframe: time.Duration(r.DurationTimeframeMinutes) * time.Minute,
		DurationInterval:  time.Duration(r.DurationIntervalSeconds) * time.Second,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Recommender.Settings().Validate(); err != nil {
		return err
	}

	settings := c.Recommender.Settings()
	if settings.DurationInterval > settings.DurationTimeframe {
		return errors.Wrapf(ranking.ErrInvalidConfig, "duration interval (%v) cannot be longer than the timeframe (%v)",
			settings.DurationInterval, settings.DurationTimeframe)
	}

	w := c.Recommender.Weights
	for name, weight := range map[string]float64{
		"duration":             w.Duration,
		"frequency":            w.Frequency,
		"most_recently_active": w.MostRecentlyActive,
		"title_similarity":     w.TitleSimilarity,
	} {
		if weight < 0 {
			return errors.Wrapf(ranking.ErrInvalidConfig, "weight %s cannot be negative, got %v", name, weight)
		}
	}
	if w.Duration+w.Frequency+w.MostRecentlyActive+w.TitleSimilarity <= 0 {
		return errors.Wrap(ranking.ErrInvalidConfig, "at least one model weight must be positive")
	}

	// Validate journal config
	if c.Journal.QueueSize < 1 {
		return fmt.Errorf("journal queue size must be positive, got %d", c.Journal.QueueSize)
	}
	if c.Journal.RetentionDays < 0 {
		return fmt.Errorf("journal retention cannot be negative")
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	// Validate daemon config
	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// SetNumberOfWindows sets the number of recommended windows with validation
func (c *Config) SetNumberOfWindows(k int) error {
	if k < 1 {
		return fmt.Errorf("number of windows must be positive, got %d", k)
	}
	c.Recommender.NumberOfWindows = k
	return nil
}

// SetDurationInterval sets the scoring interval with validation
func (c *Config) SetDurationInterval(interval time.Duration) error {
	if interval < time.Second {
		return fmt.Errorf("duration interval cannot be less than %v", time.Second)
	}
	timeframe := time.Duration(c.Recommender.DurationTimeframeMinutes) * time.Minute
	if interval > timeframe {
		return fmt.Errorf("duration interval cannot be greater than %v", timeframe)
	}
	c.Recommender.DurationIntervalSeconds = int(interval / time.Second)
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// Retention returns how long journal entries are kept, zero meaning forever
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Journal.RetentionDays) * 24 * time.Hour
}

// LoggerConfig returns the logging section as a logging.Config writing to
// the given outputs
func (c *Config) LoggerConfig(outputs ...string) logging.Config {
	return logging.Config{
		Level:       c.Logging.Level,
		Development: c.Logging.Development,
		OutputPaths: outputs,
	}
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Recommender:
    Number Of Windows: %d
    Duration Timeframe: %v
    Duration Interval: %v
    Weights: duration=%g frequency=%g most_recently_active=%g title_similarity=%g
  Database:
    Path: %s
  Journal:
    Enabled: %v
    Queue Size: %d
    Retention Days: %d
  Daemon:
    PID File: %s
    Log File: %s
  Web:
    Enabled: %v
    Host: %s
    Port: %d
  Logging:
    Level: %s
    Development: %v`,
		c.Recommender.NumberOfWindows,
		c.Recommender.Settings().DurationTimeframe,
		c.Recommender.Settings().DurationInterval,
		c.Recommender.Weights.Duration,
		c.Recommender.Weights.Frequency,
		c.Recommender.Weights.MostRecentlyActive,
		c.Recommender.Weights.TitleSimilarity,
		c.Database.Path,
		c.Journal.Enabled,
		c.Journal.QueueSize,
		c.Journal.RetentionDays,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
		c.Web.Enabled,
		c.Web.Host,
		c.Web.Port,
		c.Logging.Level,
		c.Logging.Development,
	)
}
