package config

import "time"

// Config is the full arise configuration.
type Config struct {
	// DBPath is the SQLite file; empty means ~/.arise.db.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`

	// UserID owns tasks and the profile for this install.
	UserID string `yaml:"user_id" mapstructure:"user_id"`

	// Timezone for weekday and month arithmetic ("Local", "UTC", IANA name).
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Sweep   SweepConfig   `yaml:"sweep" mapstructure:"sweep"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}

// SweepConfig drives the recurrence sweeper in `arise watch`.
type SweepConfig struct {
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	CacheSize int           `yaml:"cache_size" mapstructure:"cache_size"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `yaml:"addr" mapstructure:"addr"`
}
