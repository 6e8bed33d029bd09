// Package config loads the gizmo command's configuration from .env files,
// the environment, an optional config file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/junioryono/component/internal/tracing"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GIZMO"

// Config is the gizmo command's configuration.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Demo     DemoConfig     `mapstructure:"demo"`
	Server   ServerConfig   `mapstructure:"server"`
	Tracing  tracing.Config `mapstructure:"tracing"`
}

// DemoConfig configures the async demo loops.
type DemoConfig struct {
	Iterations int           `mapstructure:"iterations"`
	Interval   time.Duration `mapstructure:"interval"`
}

// ServerConfig configures the HTTP demo server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		LogLevel: "warn",
		Demo: DemoConfig{
			Iterations: 5,
			Interval:   time.Second,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// SetDefaults registers the defaults on v, so that every key is known to
// viper's environment lookup.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("demo.iterations", d.Demo.Iterations)
	v.SetDefault("demo.interval", d.Demo.Interval)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load reads the given .env files, then builds the configuration from v.
// Missing .env files are ignored. configFile, if not empty, must exist.
// Environment variables are GIZMO_ followed by the upper-cased key with
// dots replaced by underscores, e.g. GIZMO_DEMO_ITERATIONS.
func Load(v *viper.Viper, configFile string, envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Demo.Iterations < 1 {
		return fmt.Errorf("demo.iterations must be at least 1, got %d", c.Demo.Iterations)
	}

	if c.Demo.Interval < 0 {
		return fmt.Errorf("demo.interval cannot be negative, got %s", c.Demo.Interval)
	}

	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}
