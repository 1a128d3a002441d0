package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Everything here is fixed
// at startup; nothing in the running peripheral mutates it.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Service    ServiceConfig    `yaml:"service"`
	Connection ConnectionConfig `yaml:"connection"`
	Input      InputConfig      `yaml:"input"`
	LEDs       LEDConfig        `yaml:"leds"`
	LogLevel   string           `yaml:"log_level"`
}

// DeviceConfig holds the GAP identity of the peripheral.
type DeviceConfig struct {
	Name string `yaml:"name"`
}

// ServiceConfig holds the GATT service and characteristic UUIDs.
type ServiceConfig struct {
	UUID           string `yaml:"uuid"`
	Characteristic string `yaml:"characteristic"`
}

// ConnectionConfig holds the preferred connection parameters requested
// from the central after connect.
type ConnectionConfig struct {
	MinIntervalMs        uint32 `yaml:"min_interval_ms"`
	MaxIntervalMs        uint32 `yaml:"max_interval_ms"`
	SupervisionTimeoutMs uint32 `yaml:"supervision_timeout_ms"`
}

// InputConfig selects the monitored input line and, on desktop hosts,
// the keyboard key standing in for the button.
type InputConfig struct {
	Line int    `yaml:"line"`
	Key  string `yaml:"key"`
}

// LEDConfig maps indicator roles to Linux LED device names under Dir.
// Empty names leave the role unmapped.
type LEDConfig struct {
	Dir         string `yaml:"dir"`
	Button      string `yaml:"button"`
	Advertising string `yaml:"advertising"`
	Connected   string `yaml:"connected"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "buttonlink")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with the stock firmware values: the demo
// device name, the vendor service with the 0x1234 short UUID for both
// service and characteristic, and a 100-200ms connection interval.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "nRF52840_TechDemo",
		},
		Service: ServiceConfig{
			UUID:           "00001234-1212-efde-1523-785feabcd123",
			Characteristic: "00001234-1212-efde-1523-785feabcd123",
		},
		Connection: ConnectionConfig{
			MinIntervalMs:        100,
			MaxIntervalMs:        200,
			SupervisionTimeoutMs: 4000,
		},
		Input: InputConfig{
			Line: 0,
			Key:  "f9",
		},
		LEDs: LEDConfig{
			Dir: "/sys/class/leds",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return fmt.Errorf("device.name must not be empty")
	}

	if _, err := uuid.Parse(c.Service.UUID); err != nil {
		return fmt.Errorf("service.uuid %q is not a valid UUID: %w", c.Service.UUID, err)
	}

	if _, err := uuid.Parse(c.Service.Characteristic); err != nil {
		return fmt.Errorf("service.characteristic %q is not a valid UUID: %w", c.Service.Characteristic, err)
	}

	if c.Connection.MinIntervalMs == 0 {
		return fmt.Errorf("connection.min_interval_ms must be > 0")
	}

	if c.Connection.MaxIntervalMs < c.Connection.MinIntervalMs {
		return fmt.Errorf("connection.max_interval_ms (%d) must be >= min_interval_ms (%d)",
			c.Connection.MaxIntervalMs, c.Connection.MinIntervalMs)
	}

	if c.Connection.SupervisionTimeoutMs == 0 {
		return fmt.Errorf("connection.supervision_timeout_ms must be > 0")
	}

	if c.Input.Line < 0 {
		return fmt.Errorf("input.line must be >= 0")
	}

	if c.Input.Key == "" {
		return fmt.Errorf("input.key must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}
