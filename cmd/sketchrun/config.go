package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benaskins/sketchrun/internal/config"
)

// loadConfig reads the config file and applies flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("sketchbook") {
		cfg.Sketchbook = sketchbookFlag
	}
	if flags.Changed("osc-port") {
		cfg.OSC.Listen = oscPort
	}
	if flags.Changed("grace") {
		cfg.GracePeriod = config.Duration{Duration: gracePeriod}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
