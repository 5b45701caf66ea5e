// Package config loads and validates camera-sim configuration from the
// environment, an optional .env file and command-line flags using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fpang/camera-sim/internal/enhance"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Capture source kinds.
const (
	SourceFFmpeg  = "ffmpeg"
	SourceStill   = "still"
	SourcePattern = "pattern"
)

// Config holds application configuration.
type Config struct {
	// Port is the web server listen port.
	Port int `mapstructure:"CAMSIM_PORT"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"CAMSIM_LOG_LEVEL"`
	// Source selects the capture device kind: ffmpeg, still or pattern.
	Source string `mapstructure:"CAMSIM_SOURCE"`
	// Device is the device path (ffmpeg) or file/directory (still).
	Device string `mapstructure:"CAMSIM_DEVICE"`
	// InputFormat is the ffmpeg demuxer for the device (v4l2, avfoundation, dshow).
	InputFormat string `mapstructure:"CAMSIM_INPUT_FORMAT"`
	// Model is the Gemini image model identifier.
	Model string `mapstructure:"CAMSIM_MODEL"`
	// SimulationInterval is how often simulated exposure settings drift (e.g. "2s").
	SimulationInterval string `mapstructure:"CAMSIM_SIM_INTERVAL"`
	// ValidateKey makes startup issue a minimal request to verify the API key.
	ValidateKey bool `mapstructure:"CAMSIM_VALIDATE_KEY"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"port":         "CAMSIM_PORT",
	"log-level":    "CAMSIM_LOG_LEVEL",
	"source":       "CAMSIM_SOURCE",
	"device":       "CAMSIM_DEVICE",
	"input-format": "CAMSIM_INPUT_FORMAT",
	"model":        "CAMSIM_MODEL",
	"sim-interval": "CAMSIM_SIM_INTERVAL",
	"validate-key": "CAMSIM_VALIDATE_KEY",
}

// RegisterCaptureFlags adds the flags every binary shares: log level,
// capture source and enhancement settings. Values the user does not set
// fall through to the environment.
func RegisterCaptureFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("source", SourcePattern, "Capture source: ffmpeg, still or pattern")
	fs.String("device", "", "Camera device (ffmpeg) or image file/directory (still)")
	fs.String("input-format", "v4l2", "ffmpeg input format: v4l2, avfoundation or dshow")
	fs.StringP("model", "m", enhance.DefaultModel, "Gemini image model used for enhancement")
	fs.String("sim-interval", "2s", "How often simulated exposure settings drift")
	fs.Bool("validate-key", false, "Verify the Gemini API key at startup and exit if it fails")
}

// Load reads .env (if present), then the environment, then any flags in fs
// that the user set explicitly. fs may be nil. Missing .env is ignored.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("CAMSIM_PORT", 8080)
	v.SetDefault("CAMSIM_LOG_LEVEL", "info")
	v.SetDefault("CAMSIM_SOURCE", SourcePattern)
	v.SetDefault("CAMSIM_DEVICE", "")
	v.SetDefault("CAMSIM_INPUT_FORMAT", "v4l2")
	v.SetDefault("CAMSIM_MODEL", enhance.DefaultModel)
	v.SetDefault("CAMSIM_SIM_INTERVAL", "2s")
	v.SetDefault("CAMSIM_VALIDATE_KEY", false)

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: CAMSIM_PORT must be between 1 and 65535, got %d", c.Port)
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	switch c.Source {
	case SourceFFmpeg:
		if c.Device == "" {
			c.Device = "/dev/video0"
		}
	case SourceStill:
		if c.Device == "" {
			return errors.New("config: CAMSIM_DEVICE must name an image file or directory when CAMSIM_SOURCE=still")
		}
	case SourcePattern:
	default:
		return fmt.Errorf("config: CAMSIM_SOURCE must be one of ffmpeg, still, pattern, got %q", c.Source)
	}
	if c.Model == "" {
		c.Model = enhance.DefaultModel
	}
	return nil
}

// SimInterval parses SimulationInterval. Returns 2s if unset or invalid.
func (c *Config) SimInterval() time.Duration {
	d, err := time.ParseDuration(c.SimulationInterval)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}
