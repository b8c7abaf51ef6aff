// Package config handles hillshade configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/relief/pkg/dem"
	"github.com/Faultbox/relief/pkg/hillshade"
	"github.com/Faultbox/relief/pkg/raster"
)

// Config holds all settings for a render.
type Config struct {
	Light   hillshade.Light `yaml:"light"`
	Input   InputConfig     `yaml:"input"`
	Output  OutputConfig    `yaml:"output"`
	Logging LoggingConfig   `yaml:"logging"`
}

// InputConfig describes where the elevation grid comes from.
type InputConfig struct {
	Path     string `yaml:"path"`      // DEM file, or a GRF archive when Entry is set
	Format   string `yaml:"format"`    // npy, asc, gat, gnd; empty = from extension
	Entry    string `yaml:"entry"`     // file inside the GRF archive
	MapLight bool   `yaml:"map_light"` // light from the map's companion .rsw file
}

// OutputConfig describes how the shaded raster is written.
type OutputConfig struct {
	Path    string  `yaml:"path"`
	Format  string  `yaml:"format"` // png, bmp, tiff, npy; empty = from extension
	Invert  bool    `yaml:"invert"`
	Scale   float64 `yaml:"scale"`
	Workers int     `yaml:"workers"` // 0 = sequential, <0 = one per CPU
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Light: hillshade.DefaultLight(),
		Output: OutputConfig{
			Path:  "hillshade.png",
			Scale: 1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values that cannot be decided later without I/O.
func (c *Config) Validate() error {
	if _, err := dem.ParseFormat(c.Input.Format); err != nil {
		return fmt.Errorf("input.format: %w", err)
	}
	if _, err := raster.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.Scale < 0 {
		return fmt.Errorf("output.scale must be >= 0, got %v", c.Output.Scale)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}
