package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the RankScope server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Insights InsightsConfig
	Tracker  TrackerConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type InsightsConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type TrackerConfig struct {
	// PollInterval is the fixed cadence of the job status loop.
	PollInterval time.Duration
	// MaxPolls is a tick count, not a wall-clock deadline: changing
	// PollInterval silently changes the effective timeout duration.
	MaxPolls int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("RANKSCOPE_PORT", 8080),
			Env:  envString("RANKSCOPE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Insights: InsightsConfig{
			BaseURL: os.Getenv("INSIGHTS_BASE_URL"),
			APIKey:  os.Getenv("INSIGHTS_API_KEY"),
			Timeout: envDuration("INSIGHTS_TIMEOUT", 30*time.Second),
		},
		Tracker: TrackerConfig{
			PollInterval: envDuration("TRACKER_POLL_INTERVAL", 500*time.Millisecond),
			MaxPolls:     envInt("TRACKER_MAX_POLLS", 240),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Insights.BaseURL == "" {
		return fmt.Errorf("INSIGHTS_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Insights.BaseURL, "http://") && !strings.HasPrefix(c.Insights.BaseURL, "https://") {
		return fmt.Errorf("INSIGHTS_BASE_URL must start with http:// or https://, got %q", c.Insights.BaseURL)
	}

	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("TRACKER_POLL_INTERVAL must be positive, got %v", c.Tracker.PollInterval)
	}
	if c.Tracker.MaxPolls <= 0 {
		return fmt.Errorf("TRACKER_MAX_POLLS must be positive, got %d", c.Tracker.MaxPolls)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
