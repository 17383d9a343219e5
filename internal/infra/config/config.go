// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Output types supported by the audio engine.
const (
	OutputSpeaker = "speaker"
	OutputNull    = "null"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Engine   EngineConfig   `yaml:"engine"`
	Playback PlaybackConfig `yaml:"playback"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AuthConfig represents RPC authentication configuration.
// An empty token disables authentication.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// EngineConfig represents audio engine configuration.
type EngineConfig struct {
	SampleRate      int          `yaml:"sample_rate" default:"48000" validate:"gte=8000,lte=192000"`
	BufferSize      int          `yaml:"buffer_size" default:"1024" validate:"gte=64,lte=65536"`
	ResampleQuality int          `yaml:"resample_quality" default:"4" validate:"gte=1,lte=64"`
	Output          OutputConfig `yaml:"output"`
}

// OutputConfig represents the audio output device configuration.
type OutputConfig struct {
	Type     string         `yaml:"type" default:"speaker" validate:"oneof=speaker null"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// PlaybackConfig represents playback controller configuration.
type PlaybackConfig struct {
	MaxChannels int `yaml:"max_channels" default:"32" validate:"gte=1,lte=4093"`
}

// MonitorConfig represents playback monitor configuration.
type MonitorConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms" default:"30" validate:"gte=1,lte=1000"`
	EventBuffer    int `yaml:"event_buffer" default:"64" validate:"gte=1,lte=4096"`
}

// PollInterval returns the poll interval as a duration.
func (m MonitorConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalMs) * time.Millisecond
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return finish(&cfg)
}

// Default returns the configuration used when no file is given, with
// environment overrides applied.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("FRAMECUE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("FRAMECUE_AUTH_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("FRAMECUE_OUTPUT"); v != "" {
		c.Engine.Output.Type = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
