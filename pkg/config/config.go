package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Backends
const (
	BackendBlueZ = "bluez"
	BackendHCI   = "hci"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLEBAT_"

// Config holds application configuration
type Config struct {
	LogLevel     string        `yaml:"log_level" default:"panic"`
	Backend      string        `yaml:"backend" default:"bluez"`
	Adapter      string        `yaml:"adapter" default:"hci0"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"`
	OutputFormat string        `yaml:"output_format" default:"table"`
	HCI          HCIConfig     `yaml:"hci"`
}

// HCIConfig tunes the go-ble backend.
type HCIConfig struct {
	DeviceID   int           `yaml:"device_id" default:"0"`
	ScanWindow time.Duration `yaml:"scan_window" default:"5s"`
}

// DefaultConfig returns default configuration values. BlueZ only exists on
// Linux; elsewhere the go-ble backend is the default.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	if runtime.GOOS != "linux" {
		cfg.Backend = BackendHCI
	}
	return cfg
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies BLEBAT_* environment variables. Unparseable
// durations and numbers are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "ADAPTER"); ok {
		cfg.Adapter = v
	}
	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = v
	}
	if v := os.Getenv(EnvPrefix + "HCI_DEVICE_ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HCI.DeviceID = n
		}
	}
	if v := os.Getenv(EnvPrefix + "HCI_SCAN_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HCI.ScanWindow = d
		}
	}
}

// Validate checks enumerated values and bounds.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	switch c.Backend {
	case BackendBlueZ, BackendHCI:
	default:
		return fmt.Errorf("invalid backend %q (expected %s or %s)", c.Backend, BackendBlueZ, BackendHCI)
	}
	switch c.OutputFormat {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("invalid output_format %q (expected %s or %s)", c.OutputFormat, FormatTable, FormatJSON)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.HCI.ScanWindow <= 0 {
		return fmt.Errorf("hci.scan_window must be positive, got %s", c.HCI.ScanWindow)
	}
	if c.HCI.DeviceID < 0 {
		return fmt.Errorf("hci.device_id must not be negative, got %d", c.HCI.DeviceID)
	}
	return nil
}

// Level returns the parsed log level, falling back to panic (silent).
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.PanicLevel
	}
	return level
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
