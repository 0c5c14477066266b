package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Dataset.TimeZone)
	assert.Equal(t, 100, cfg.Dataset.MaxWarnings)
	assert.False(t, cfg.Dataset.CyclistsOnly)
	assert.InDelta(t, 100.0, cfg.Join.RadiusMeters, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.Join.TimeWindow)
	assert.Equal(t, "rtree", cfg.Join.Technique)
	assert.Equal(t, 100, cfg.Raster.Bins)
	assert.Equal(t, 15, cfg.Raster.TimeBinMinutes)
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
dataset:
  time_zone: America/New_York
  cyclists_only: true
  trip_aliases:
    Trip Start: start_time
join:
  radius_meters: 250
  time_window: 1h
  technique: geohash
raster:
  bins: 50
  time_bin_minutes: 30
redis:
  addr: localhost:6379
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "America/New_York", cfg.Dataset.TimeZone)
	assert.True(t, cfg.Dataset.CyclistsOnly)
	assert.Equal(t, "start_time", cfg.Dataset.TripAliases["trip start"])
	assert.InDelta(t, 250.0, cfg.Join.RadiusMeters, 1e-9)
	assert.Equal(t, time.Hour, cfg.Join.TimeWindow)
	assert.Equal(t, "geohash", cfg.Join.Technique)
	assert.Equal(t, 50, cfg.Raster.Bins)
	assert.Equal(t, 30, cfg.Raster.TimeBinMinutes)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "join:\n  radius_meters: 250\n")
	t.Setenv("BIKERISK_JOIN_RADIUS_METERS", "75")
	t.Setenv("BIKERISK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, cfg.Join.RadiusMeters, 1e-9)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative radius", "join:\n  radius_meters: -1\n"},
		{"zero bins", "raster:\n  bins: 0\n"},
		{"time bin too large", "raster:\n  time_bin_minutes: 2000\n"},
		{"unknown zone", "dataset:\n  time_zone: Nowhere/Atlantis\n"},
		{"bad log format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestInitConfig(t *testing.T) {
	t.Cleanup(func() { Cfg = nil })
	require.NoError(t, InitConfig(writeConfig(t, "raster:\n  bins: 10\n")))
	require.NotNil(t, Cfg)
	assert.Equal(t, 10, Cfg.Raster.Bins)
}
