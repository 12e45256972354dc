package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const DefaultUserID = "local"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		UserID:   DefaultUserID,
		Timezone: "Local",
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Sweep: SweepConfig{
			Interval:  time.Minute,
			CacheSize: 1024,
		},
	}
}

// WriteDefault writes a commented default configuration to path.
func WriteDefault(path string) error {
	content := `# arise configuration

# SQLite database (default ~/.arise.db)
# db_path: ~/.arise.db

user_id: local

# Zone for weekly/monthly recurrence ("Local", "UTC" or an IANA name)
timezone: Local

log:
  level: warn      # debug | info | warn | error
  format: console  # console | json

sweep:
  interval: 1m
  cache_size: 1024

# metrics:
#   addr: 127.0.0.1:9464
`
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
