// Package config handles XDG configuration directory, file paths and settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskman"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.yaml"

	// TokenFile holds the persisted bearer token.
	TokenFile = "token"

	// UserFile holds the persisted user record.
	UserFile = "user.json"

	// EnvAPIURL overrides the API base URL.
	EnvAPIURL = "TASKMAN_API_URL"

	DefaultAPIURL   = "http://localhost:5000/api"
	DefaultPageSize = 6
	DefaultTimeout  = 10 * time.Second
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the base URL of the task API, without trailing slash.
	APIURL string `mapstructure:"api_url"`

	// PageSize is the number of tasks requested per page.
	PageSize int `mapstructure:"page_size"`

	// Timeout bounds each API call.
	Timeout time.Duration `mapstructure:"timeout"`

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskman or $HOME/.config/taskman.
// Settings come from config.yaml in that directory when present, then from
// the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:      dir,
		APIURL:   DefaultAPIURL,
		PageSize: DefaultPageSize,
		Timeout:  DefaultTimeout,
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}

	if url := os.Getenv(EnvAPIURL); url != "" {
		cfg.APIURL = url
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("invalid page_size in %s: %d", cfg.FilePath(), cfg.PageSize)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return cfg, nil
}

func (c *Config) loadFile() error {
	path := c.FilePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("invalid %s: %w", path, err)
	}
	return nil
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

// FilePath returns the path to config.yaml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// TokenPath returns the path to the stored token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// UserPath returns the path to the stored user record.
func (c *Config) UserPath() string {
	return filepath.Join(c.Dir, UserFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
