package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. ARISE_USER_ID,
// ARISE_LOG_LEVEL, ARISE_SWEEP_INTERVAL.
const EnvPrefix = "ARISE"

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".arise", "config.yaml")
}

// Load merges, lowest to highest precedence: defaults, the global config
// file, the file at explicitPath (if non-empty) and ARISE_* environment
// variables. A missing global file is fine; a missing explicit file is not.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	if err := mergeFile(v, GlobalConfigPath(), false); err != nil {
		return nil, err
	}
	if explicitPath != "" {
		if err := mergeFile(v, explicitPath, true); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config %s: %w", path, err)
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so env overrides apply on Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("user_id", d.UserID)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("sweep.interval", d.Sweep.Interval)
	v.SetDefault("sweep.cache_size", d.Sweep.CacheSize)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("config: user_id is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("config: sweep.interval must be positive, got %s", c.Sweep.Interval)
	}
	if c.Sweep.CacheSize <= 0 {
		return fmt.Errorf("config: sweep.cache_size must be positive, got %d", c.Sweep.CacheSize)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// Location resolves Timezone. Empty means Local.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", tz, err)
	}
	return loc, nil
}
