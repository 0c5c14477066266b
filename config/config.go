package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Dataset DatasetConfig `mapstructure:"dataset"`
	Join    JoinConfig    `mapstructure:"join"`
	Raster  RasterConfig  `mapstructure:"raster"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// DatasetConfig controls how raw exports are mapped onto records. The alias
// maps add {source column -> canonical field} entries on top of the built-in
// table, so a new export format only needs configuration.
type DatasetConfig struct {
	TimeZone     string            `mapstructure:"time_zone"`
	TimeLayouts  []string          `mapstructure:"time_layouts"`
	TripAliases  map[string]string `mapstructure:"trip_aliases"`
	CrashAliases map[string]string `mapstructure:"crash_aliases"`
	CyclistsOnly bool              `mapstructure:"cyclists_only"`
	MaxWarnings  int               `mapstructure:"max_warnings"`
}

type JoinConfig struct {
	RadiusMeters float64       `mapstructure:"radius_meters"`
	TimeWindow   time.Duration `mapstructure:"time_window"`
	Technique    string        `mapstructure:"technique"`
}

type RasterConfig struct {
	Bins           int `mapstructure:"bins"`
	TimeBinMinutes int `mapstructure:"time_bin_minutes"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "BIKERISK"

var Cfg *Config

// InitConfig loads the configuration into Cfg.
func InitConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Cfg = cfg
	return nil
}

// Load reads path, or config.yaml from the working directory when path is
// empty, and applies BIKERISK_* environment overrides. A missing default
// config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset.time_zone", "UTC")
	v.SetDefault("dataset.time_layouts", []string{})
	v.SetDefault("dataset.cyclists_only", false)
	v.SetDefault("dataset.max_warnings", 100)

	v.SetDefault("join.radius_meters", 100.0)
	v.SetDefault("join.time_window", 30*time.Minute)
	v.SetDefault("join.technique", "rtree")

	v.SetDefault("raster.bins", 100)
	v.SetDefault("raster.time_bin_minutes", 15)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) Validate() error {
	if c.Join.RadiusMeters < 0 {
		return fmt.Errorf("join.radius_meters must be >= 0, got %v", c.Join.RadiusMeters)
	}
	if c.Join.TimeWindow < 0 {
		return fmt.Errorf("join.time_window must be >= 0, got %v", c.Join.TimeWindow)
	}
	if c.Raster.Bins <= 0 {
		return fmt.Errorf("raster.bins must be > 0, got %d", c.Raster.Bins)
	}
	if c.Raster.TimeBinMinutes <= 0 || c.Raster.TimeBinMinutes > 24*60 {
		return fmt.Errorf("raster.time_bin_minutes must be in 1..1440, got %d", c.Raster.TimeBinMinutes)
	}
	if _, err := time.LoadLocation(c.Dataset.TimeZone); err != nil {
		return fmt.Errorf("dataset.time_zone: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// SlogLevel maps the configured level string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
