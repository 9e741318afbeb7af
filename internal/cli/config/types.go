// Package config provides configuration management for the stubkit CLI.
package config

import "log/slog"

// Config holds all CLI configuration options.
type Config struct {
	MultilineArgs  bool       `koanf:"multiline_args"`
	SortSignatures bool       `koanf:"sort_signatures"`
	Jobs           int        `koanf:"jobs"`
	CachePath      string     `koanf:"cache_path"` // empty disables the stub cache
	LogLevel       slog.Level `koanf:"log_level"`
	OutputFormat   string     `koanf:"output"`

	// Set by the loader, not read from any source.
	ProjectRoot string `koanf:"-"`
	ConfigFile  string `koanf:"-"`
}

// CacheEnabled reports whether printed stubs should be cached.
func (c *Config) CacheEnabled() bool {
	return c.CachePath != ""
}

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Default configuration values.
const (
	DefaultLogLevel = "warn"
	DefaultOutput   = OutputText
)

// configNames are the file names searched for, in order.
var configNames = []string{"stubkit.yaml", "stubkit.yml"}
