package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blebat/battery"
	"github.com/srg/blebat/internal/devicefactory"
	"github.com/srg/blebat/pkg/config"
)

func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.Bool("verbose", false, "Enable debug logging (same as --log-level debug)")
	f.String("config", "", "Config file (default: <user config dir>/blebat/config.yaml)")
	f.String("backend", "", "Bluetooth backend: bluez or hci")
	f.String("adapter", "", "BlueZ adapter name, e.g. hci0 (empty: first adapter)")
	f.Duration("timeout", 0, "Bound for the whole operation, e.g. 30s")
	f.String("format", "", "Output format: table or json")
}

// settings is the merged configuration every subcommand runs with.
type settings struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// loadSettings layers config file, BLEBAT_* environment and flags, in that
// order, and validates the result.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flags.Changed("backend") {
		cfg.Backend, _ = flags.GetString("backend")
	}
	if flags.Changed("adapter") {
		cfg.Adapter, _ = flags.GetString("adapter")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("format") {
		cfg.OutputFormat, _ = flags.GetString("format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := configureLogger(cmd, "verbose", cfg)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"config":  path,
		"backend": cfg.Backend,
		"adapter": cfg.Adapter,
		"timeout": cfg.Timeout,
	}).Debug("Configuration loaded")

	return &settings{cfg: cfg, logger: logger}, nil
}

func (s *settings) gateway() *battery.Gateway {
	return battery.NewGateway(devicefactory.Opener(s.cfg, s.logger), s.logger)
}

// commandContext bounds a one-shot command by the configured timeout and
// cancels it on Ctrl+C.
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blebat", "config.yaml")
}

// describeBackend names the backend for progress lines.
func describeBackend(cfg *config.Config) string {
	if cfg.Backend == config.BackendHCI {
		return fmt.Sprintf("hci%d", cfg.HCI.DeviceID)
	}
	if cfg.Adapter == "" {
		return "bluez"
	}
	return "bluez/" + cfg.Adapter
}
