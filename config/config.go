// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	appName          = "kzmacro"
	configFileName   = "config.json"
	profilesFileName = "macros.json"
)

// Defaults applied when a field is missing or out of range.
const (
	DefaultLogLevel           = "info"
	DefaultSettleDelayMS      = 20
	DefaultHookStartTimeoutMS = 3000
)

// Config represents the application configuration.
type Config struct {
	LogLevel           string `json:"log_level"`
	ProfilesPath       string `json:"profiles_path,omitempty"`
	SettleDelayMS      int    `json:"settle_delay_ms"`
	HookStartTimeoutMS int    `json:"hook_start_timeout_ms"`
	// Autoload loads ProfilesPath at startup.
	Autoload bool `json:"autoload"`

	path string
}

// Load loads configuration from the default config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path. A missing file yields defaults
// that save back to path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	c.path = path
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// ProfilesFile returns ProfilesPath, or macros.json next to the config file
// when none is set.
func (c *Config) ProfilesFile() (string, error) {
	if c.ProfilesPath != "" {
		return c.ProfilesPath, nil
	}
	dir := filepath.Dir(c.path)
	if c.path == "" {
		p, err := configPath()
		if err != nil {
			return "", fmt.Errorf("get config path: %w", err)
		}
		dir = filepath.Dir(p)
	}
	return filepath.Join(dir, profilesFileName), nil
}

// SettleDelay is the pause between press and release of a full click.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// HookStartTimeout bounds how long to wait for the OS input hook.
func (c *Config) HookStartTimeout() time.Duration {
	return time.Duration(c.HookStartTimeoutMS) * time.Millisecond
}

// Level parses LogLevel. Unknown values fall back to info.
func (c *Config) Level() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Helper functions

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.SettleDelayMS <= 0 {
		c.SettleDelayMS = DefaultSettleDelayMS
	}
	if c.HookStartTimeoutMS <= 0 {
		c.HookStartTimeoutMS = DefaultHookStartTimeoutMS
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Default returns the built-in configuration. It saves to the default path.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		LogLevel:           DefaultLogLevel,
		SettleDelayMS:      DefaultSettleDelayMS,
		HookStartTimeoutMS: DefaultHookStartTimeoutMS,
	}
}
