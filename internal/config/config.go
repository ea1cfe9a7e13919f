// Package config handles the XDG configuration directory, the optional
// config.toml file and the resulting client settings.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is the application directory name.
	AppName = "taskdash"

	// ConfigFile is the optional settings filename.
	ConfigFile = "config.toml"

	// StoreFile is the local key/value storage database filename.
	StoreFile = "storage.db"

	// DefaultBaseURL is the API address used when nothing else is configured.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds every API call.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInterval is how often local storage is checked for changes
	// made by other processes.
	DefaultPollInterval = 500 * time.Millisecond

	// BaseURLEnv overrides the configured base URL.
	BaseURLEnv = "TASKDASH_BASE_URL"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// BaseURL is the REST API root.
	BaseURL string

	// Timeout bounds each API call.
	Timeout time.Duration

	// PollInterval is the local storage change polling period.
	PollInterval time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a Config with defaults for the given directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskdash or $HOME/.config/taskdash.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:          dir,
		BaseURL:      DefaultBaseURL,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.toml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// StorePath returns the path to the local storage database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Dir, StoreFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasFile checks if config.toml exists.
func (c *Config) HasFile() bool {
	_, err := os.Stat(c.FilePath())
	return err == nil
}
