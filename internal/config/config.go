// Package config holds the runtime settings of the Phoenix CLI and loads
// them from defaults, an optional JSON file and command-line flags, in that
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the Phoenix CLI.
//
// Fields:
//   - DataDir: directory for the sqlite database and the encryption key file.
//   - RequestTimeout: per-request bound for calls to the sync server.
//   - InsecureTLS: skip TLS certificate validation on the sync server,
//     for self-hosted endpoints with self-signed certificates.
type Config struct {
	DataDir        string
	RequestTimeout time.Duration
	InsecureTLS    bool
}

// DatabasePath is the sqlite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "phoenix.db")
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.RequestTimeout = 30 * time.Second
	c.InsecureTLS = false
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".phoenix"
	}
	return filepath.Join(base, "phoenix")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
