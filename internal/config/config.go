// Package config defines the application configuration and its loading
// rules (file, environment, flags).
package config

import (
	"fmt"
	"strings"
)

// Config represents the complete configuration for the platen tool. It
// supports loading from configuration files, environment variables, and
// command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Optics configuration
	Optics OpticsConfig `mapstructure:"optics" yaml:"optics" json:"optics"`

	// Corner detector configuration
	Corners CornersConfig `mapstructure:"corners" yaml:"corners" json:"corners"`

	// Remap engine configuration
	Remap RemapConfig `mapstructure:"remap" yaml:"remap" json:"remap"`
}

// OpticsConfig selects the calibration database and the default optical
// parameters.
type OpticsConfig struct {
	DatabasePath string  `mapstructure:"database_path" yaml:"database_path" json:"database_path"`
	CameraMaker  string  `mapstructure:"camera_maker" yaml:"camera_maker" json:"camera_maker"`
	CameraModel  string  `mapstructure:"camera_model" yaml:"camera_model" json:"camera_model"`
	LensModel    string  `mapstructure:"lens_model" yaml:"lens_model" json:"lens_model"`
	CropFactor   float64 `mapstructure:"crop_factor" yaml:"crop_factor" json:"crop_factor"`
	FocalLength  float64 `mapstructure:"focal_length" yaml:"focal_length" json:"focal_length"`
}

// CornersConfig tunes the corner detector.
type CornersConfig struct {
	K          float64 `mapstructure:"k" yaml:"k" json:"k"`
	BlurRadius float64 `mapstructure:"blur_radius" yaml:"blur_radius" json:"blur_radius"`
	MaxSize    int     `mapstructure:"max_size" yaml:"max_size" json:"max_size"`
}

// RemapConfig tunes the dense remap stage.
type RemapConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Optics: OpticsConfig{
			DatabasePath: "",
			CropFactor:   0,
			FocalLength:  50,
		},
		Corners: CornersConfig{
			K:          0.01,
			BlurRadius: 2,
			MaxSize:    1024,
		},
		Remap: RemapConfig{
			Workers: 0,
		},
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	level := strings.ToLower(c.LogLevel)
	ok := false
	for _, l := range validLogLevels {
		if level == l {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log level %q (must be one of %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Optics.CropFactor < 0 {
		return fmt.Errorf("optics.crop_factor must not be negative, got %g", c.Optics.CropFactor)
	}
	if c.Optics.FocalLength <= 0 {
		return fmt.Errorf("optics.focal_length must be positive, got %g", c.Optics.FocalLength)
	}
	if c.Corners.K <= 0 {
		return fmt.Errorf("corners.k must be positive, got %g", c.Corners.K)
	}
	if c.Corners.BlurRadius < 0 {
		return fmt.Errorf("corners.blur_radius must not be negative, got %g", c.Corners.BlurRadius)
	}
	if c.Corners.MaxSize < 0 {
		return fmt.Errorf("corners.max_size must not be negative, got %d", c.Corners.MaxSize)
	}
	if c.Remap.Workers < 0 {
		return fmt.Errorf("remap.workers must not be negative, got %d", c.Remap.Workers)
	}
	return nil
}
