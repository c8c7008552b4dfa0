// Package config loads the shell configuration.
//
// The file is read from $LDAPSH_CONFIG, or ~/.ldapsh/config.yaml when the
// variable is unset. A missing file yields the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar overrides the config file location.
const EnvVar = "LDAPSH_CONFIG"

// Config is the shell configuration.
type Config struct {
	// HistoryFile holds the readline line history.
	HistoryFile string `yaml:"history_file"`

	// SessionHistorySize bounds the per-session command history.
	SessionHistorySize int `yaml:"session_history_size"`

	QueryHistory QueryHistoryConfig `yaml:"query_history"`
	Overlay      OverlayConfig      `yaml:"overlay"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Connection   ConnectionConfig   `yaml:"connection"`
}

// QueryHistoryConfig configures remembered hosts, base DNs and filters.
type QueryHistoryConfig struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"`
}

// OverlayConfig configures the ? help overlay.
type OverlayConfig struct {
	// Mode is "auto-dismiss" or "interactive".
	Mode         string        `yaml:"mode"`
	DismissAfter time.Duration `yaml:"dismiss_after"`
	// Inline shows the overlay as soon as ? is typed at the end of the
	// line instead of when the line is submitted.
	Inline bool `yaml:"inline"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Path     string `yaml:"path"`
	Level    string `yaml:"level"`
	MaxSize  int64  `yaml:"max_size"`
	MaxFiles int    `yaml:"max_files"`
}

// MetricsConfig configures the optional metrics and session API listener.
type MetricsConfig struct {
	// Listen is a host:port; empty disables the listener.
	Listen string `yaml:"listen"`
	// Token, when set, is required as a bearer token on /api/ paths.
	Token string `yaml:"token"`
}

// ConnectionConfig holds defaults for connect.
type ConnectionConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	BindDN  string        `yaml:"bind_dn"`
	TLS     bool          `yaml:"tls"`
	BaseDN  string        `yaml:"base_dn"`
	Timeout time.Duration `yaml:"timeout"`
}

// Dir returns ~/.ldapsh.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "ldapsh")
	}
	return filepath.Join(home, ".ldapsh")
}

// Path returns the config file location.
func Path() string {
	if p := os.Getenv(EnvVar); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		HistoryFile:        filepath.Join(dir, "history"),
		SessionHistorySize: 20,
		QueryHistory: QueryHistoryConfig{
			File: filepath.Join(dir, "query_history.json"),
			Size: 20,
		},
		Overlay: OverlayConfig{
			Mode:         "auto-dismiss",
			DismissAfter: 5 * time.Second,
		},
		Log: LogConfig{
			Path:     filepath.Join(dir, "ldapsh.log"),
			Level:    "info",
			MaxSize:  10 * 1024 * 1024,
			MaxFiles: 5,
		},
		Connection: ConnectionConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Overlay.Mode {
	case "", "auto", "auto-dismiss", "interactive":
	default:
		return fmt.Errorf("overlay.mode: unknown mode %q", c.Overlay.Mode)
	}
	if c.SessionHistorySize < 0 {
		return fmt.Errorf("session_history_size: must not be negative")
	}
	if c.QueryHistory.Size < 0 {
		return fmt.Errorf("query_history.size: must not be negative")
	}
	if c.Connection.Port < 0 || c.Connection.Port > 65535 {
		return fmt.Errorf("connection.port: %d out of range", c.Connection.Port)
	}
	return nil
}
