// Package config handles converter configuration loading and management.
package config

import "github.com/pkg/errors"

// Config holds all converter settings.
type Config struct {
	Conversion ConversionConfig `yaml:"conversion"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConversionConfig holds document model and tiling settings.
type ConversionConfig struct {
	MaxKDTreeDepth int     `yaml:"max_kd_tree_depth"` // Depth at which the tiler stops splitting
	MinTileSize    float64 `yaml:"min_tile_size"`     // Nodes with a smaller diagonal are not split; 0 disables
	EdgeThreshold  float64 `yaml:"edge_threshold"`    // Dihedral angle in degrees above which an edge is drawn
	Strict         bool    `yaml:"strict"`            // Fail on unknown references instead of skipping them
}

// OutputConfig holds container writing settings.
type OutputConfig struct {
	CompressionLevel int  `yaml:"compression_level"` // zlib level, -1 for default
	Validate         bool `yaml:"validate"`          // Decode and compare after writing
	MetaModel        bool `yaml:"meta_model"`        // Write a .json metadata sidecar
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Conversion: ConversionConfig{
			MaxKDTreeDepth: 5,
			MinTileSize:    500,
			EdgeThreshold:  10,
			Strict:         false,
		},
		Output: OutputConfig{
			CompressionLevel: -1,
			Validate:         false,
			MetaModel:        false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the converter cannot work with.
func (c *Config) Validate() error {
	if c.Conversion.MaxKDTreeDepth < 1 {
		return errors.Errorf("max_kd_tree_depth must be at least 1, got %d", c.Conversion.MaxKDTreeDepth)
	}
	if c.Conversion.MinTileSize < 0 {
		return errors.Errorf("min_tile_size must not be negative, got %g", c.Conversion.MinTileSize)
	}
	if c.Conversion.EdgeThreshold <= 0 || c.Conversion.EdgeThreshold > 180 {
		return errors.Errorf("edge_threshold must be within (0, 180] degrees, got %g", c.Conversion.EdgeThreshold)
	}
	if c.Output.CompressionLevel < -1 || c.Output.CompressionLevel > 9 {
		return errors.Errorf("compression_level must be within [-1, 9], got %d", c.Output.CompressionLevel)
	}
	return nil
}
