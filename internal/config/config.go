// Package config loads the bridge options from YAML and supplies defaults
// for anything the file leaves out.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk option set.
type Config struct {
	// Mode is the start mode, "modern" or "legacy".
	Mode string `yaml:"mode"`

	Logging struct {
		// Level is a zerolog level name.
		Level string `yaml:"level"`
		// Output is "console", "json" or a file path.
		Output string `yaml:"output"`
	} `yaml:"logging"`

	Harmonization struct {
		// Workers bounds concurrent plane copies.
		Workers int `yaml:"workers"`
	} `yaml:"harmonization"`

	Dispatch struct {
		QueueSize   int `yaml:"queueSize"`
		EventBuffer int `yaml:"eventBuffer"`
	} `yaml:"dispatch"`

	Memory struct {
		// LimitBytes caps live plane allocations; zero disables the cap.
		LimitBytes int64 `yaml:"limitBytes"`
		// ScratchPlanes is how many saved-plane buffers are pooled.
		ScratchPlanes int `yaml:"scratchPlanes"`
	} `yaml:"memory"`

	Window struct {
		Headless bool    `yaml:"headless"`
		Width    float32 `yaml:"width"`
		Height   float32 `yaml:"height"`
	} `yaml:"window"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Mode = "modern"
	cfg.Logging.Level = "info"
	cfg.Logging.Output = "console"
	cfg.Harmonization.Workers = runtime.NumCPU()
	cfg.Dispatch.QueueSize = 64
	cfg.Dispatch.EventBuffer = 128
	cfg.Memory.LimitBytes = 2 * 1024 * 1024 * 1024
	cfg.Memory.ScratchPlanes = 4
	cfg.Window.Width = 640
	cfg.Window.Height = 480
	return cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate rejects values the bridge cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case "modern", "legacy":
	default:
		return fmt.Errorf("invalid mode %q: want modern or legacy", c.Mode)
	}
	if c.Harmonization.Workers < 1 {
		return fmt.Errorf("harmonization workers must be positive, got %d", c.Harmonization.Workers)
	}
	if c.Dispatch.QueueSize < 1 || c.Dispatch.EventBuffer < 1 {
		return fmt.Errorf("dispatch queue and event buffer sizes must be positive")
	}
	if c.Memory.LimitBytes < 0 {
		return fmt.Errorf("memory limit must not be negative")
	}
	return nil
}

// LegacyMode reports whether the configured start mode is legacy.
func (c *Config) LegacyMode() bool {
	return c.Mode == "legacy"
}
