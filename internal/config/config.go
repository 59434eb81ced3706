package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Connect      ConnectConfig `yaml:"connect"`
	RegistryPath string        `yaml:"registry_path"`
	LogLevel     string        `yaml:"log_level"`
}

// ConnectConfig holds connection policy settings.
type ConnectConfig struct {
	// AutoConnect connects to a discovered probe without explicit selection.
	AutoConnect bool `yaml:"auto_connect"`
	// PreferredDevices restricts auto-connect to these identities; empty
	// means "first match wins".
	PreferredDevices []string `yaml:"preferred_devices"`
	TimeoutSeconds   int      `yaml:"timeout_seconds"`
}

// Timeout returns the connect timeout as a duration.
func (c ConnectConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pitprobe")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Connect: ConnectConfig{
			AutoConnect:    false,
			TimeoutSeconds: 10,
		},
		RegistryPath: filepath.Join(DefaultConfigDir(), "devices.yaml"),
		LogLevel:     "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. Tilde (~) in registry_path is expanded to the user's home
// directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.RegistryPath = expandTilde(cfg.RegistryPath)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.RegistryPath == "" {
		return fmt.Errorf("registry_path must not be empty")
	}

	if c.Connect.TimeoutSeconds <= 0 {
		return fmt.Errorf("connect.timeout_seconds must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
