package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 50.0, cfg.Optics.FocalLength, 1e-9)
	assert.InDelta(t, 0.01, cfg.Corners.K, 1e-9)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"negative crop factor", func(c *Config) { c.Optics.CropFactor = -1 }},
		{"zero focal length", func(c *Config) { c.Optics.FocalLength = 0 }},
		{"zero harris k", func(c *Config) { c.Corners.K = 0 }},
		{"negative blur", func(c *Config) { c.Corners.BlurRadius = -0.5 }},
		{"negative max size", func(c *Config) { c.Corners.MaxSize = -1 }},
		{"negative workers", func(c *Config) { c.Remap.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadWithFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "platen.yaml")
	content := `
log_level: debug
optics:
  database_path: /opt/platen/calibration.yaml
  camera_model: NEX-7
  lens_model: E 50mm f/1.8 OSS
  crop_factor: 1.5
corners:
  max_size: 2048
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/opt/platen/calibration.yaml", cfg.Optics.DatabasePath)
	assert.Equal(t, "NEX-7", cfg.Optics.CameraModel)
	assert.InDelta(t, 1.5, cfg.Optics.CropFactor, 1e-9)
	assert.Equal(t, 2048, cfg.Corners.MaxSize)

	// Unset keys fall back to defaults.
	assert.InDelta(t, 50.0, cfg.Optics.FocalLength, 1e-9)
	assert.InDelta(t, 0.01, cfg.Corners.K, 1e-9)
}

func TestLoadWithFile_Missing(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := NewLoader().LoadWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadWithFile_InvalidValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "platen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: shout\n"), 0o600))

	_, err := NewLoader().LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
