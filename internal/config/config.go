// Package config loads the scheduler daemon configuration from a YAML file
// and applies defaults for everything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/groundstation-scheduler/internal/storage"
)

// Config represents the overall daemon configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Engine   EngineConfig   `yaml:"engine"`
	Database DatabaseConfig `yaml:"database"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	ListenAddr             string  `yaml:"listen_addr"`
	RateLimitPerSec        float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst         int     `yaml:"rate_limit_burst"`
	ShutdownTimeoutSeconds int     `yaml:"shutdown_timeout_seconds"`

	ShutdownTimeout time.Duration `yaml:"-"`
}

// EngineConfig tunes the scheduling engine.
type EngineConfig struct {
	WindowHours              int `yaml:"window_hours"`
	PropagateIntervalMinutes int `yaml:"propagate_interval_minutes"`
	MinSlotDurationSeconds   int `yaml:"min_slot_duration_seconds"`
	MinPassDurationSeconds   int `yaml:"min_pass_duration_seconds"`
	SampleStepSeconds        int `yaml:"sample_step_seconds"`

	// Derived durations, ignored by the YAML parser.
	Window            time.Duration `yaml:"-"`
	PropagateInterval time.Duration `yaml:"-"`
	MinSlotDuration   time.Duration `yaml:"-"`
	MinPassDuration   time.Duration `yaml:"-"`
	SampleStep        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // sqlite | postgres
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Storage converts the database section into the storage package's config.
func (d DatabaseConfig) Storage() storage.Config {
	return storage.Config{
		Driver:          d.Driver,
		DSN:             d.DSN,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: time.Duration(d.ConnMaxLifetimeMinutes) * time.Minute,
	}
}

// Defaults returns the configuration used when no file is given.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from the given path and fills in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 50
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 100
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	c.Server.ShutdownTimeout = time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second

	if c.Engine.WindowHours <= 0 {
		c.Engine.WindowHours = 48
	}
	if c.Engine.PropagateIntervalMinutes <= 0 {
		c.Engine.PropagateIntervalMinutes = 15
	}
	if c.Engine.MinSlotDurationSeconds <= 0 {
		c.Engine.MinSlotDurationSeconds = 60
	}
	if c.Engine.MinPassDurationSeconds <= 0 {
		c.Engine.MinPassDurationSeconds = 60
	}
	if c.Engine.SampleStepSeconds <= 0 {
		c.Engine.SampleStepSeconds = 30
	}
	c.Engine.Window = time.Duration(c.Engine.WindowHours) * time.Hour
	c.Engine.PropagateInterval = time.Duration(c.Engine.PropagateIntervalMinutes) * time.Minute
	c.Engine.MinSlotDuration = time.Duration(c.Engine.MinSlotDurationSeconds) * time.Second
	c.Engine.MinPassDuration = time.Duration(c.Engine.MinPassDurationSeconds) * time.Second
	c.Engine.SampleStep = time.Duration(c.Engine.SampleStepSeconds) * time.Second

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = "file:scheduler.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetimeMinutes <= 0 {
		c.Database.ConnMaxLifetimeMinutes = 60
	}
}
