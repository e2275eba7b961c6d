// Package config provides Viper-based configuration for the snapfit CLI.
package config

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/shamspias/snapfit"
)

// Config is the complete CLI configuration.
type Config struct {
	Target  TargetConfig  `mapstructure:"target"`
	Encoder EncoderConfig `mapstructure:"encoder"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TargetConfig holds the byte budget and longer-edge cap.
type TargetConfig struct {
	// MaxBytes accepts plain byte counts or sizes such as "900KB".
	MaxBytes     string `mapstructure:"max_bytes"`
	MaxDimension int    `mapstructure:"max_dimension"`
}

// EncoderConfig holds JPEG encoder settings.
type EncoderConfig struct {
	Resampler  string `mapstructure:"resampler"`
	Background string `mapstructure:"background"`
}

// UploadConfig holds the upload endpoint.
type UploadConfig struct {
	URL   string `mapstructure:"url"`
	Field string `mapstructure:"field"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from v, which may already have flags bound.
// cfgFile overrides the default search for .snapfit.yaml.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".snapfit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/snapfit")
	}

	v.SetEnvPrefix("SNAPFIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target.max_bytes", strconv.Itoa(snapfit.DefaultMaxBytes))
	v.SetDefault("target.max_dimension", snapfit.DefaultMaxDimension)

	v.SetDefault("encoder.resampler", snapfit.ApproxBiLinear.String())
	v.SetDefault("encoder.background", "white")

	v.SetDefault("upload.field", "file")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validate(cfg *Config) error {
	if _, err := cfg.CompressionTarget(); err != nil {
		return err
	}
	if _, err := cfg.JPEGEncoder(); err != nil {
		return err
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}
	return nil
}

// CompressionTarget returns the configured byte budget and dimension cap.
func (c *Config) CompressionTarget() (snapfit.Target, error) {
	maxBytes, err := ParseSize(c.Target.MaxBytes)
	if err != nil {
		return snapfit.Target{}, fmt.Errorf("invalid target.max_bytes %q: %w", c.Target.MaxBytes, err)
	}
	if maxBytes <= 0 {
		return snapfit.Target{}, fmt.Errorf("target.max_bytes must be positive, got %d", maxBytes)
	}
	if c.Target.MaxDimension <= 0 {
		return snapfit.Target{}, fmt.Errorf("target.max_dimension must be positive, got %d", c.Target.MaxDimension)
	}
	return snapfit.Target{MaxBytes: maxBytes, MaxDimension: c.Target.MaxDimension}, nil
}

// JPEGEncoder returns an encoder with the configured resampler and background.
func (c *Config) JPEGEncoder() (*snapfit.JPEGEncoder, error) {
	r, err := snapfit.ParseResampler(c.Encoder.Resampler)
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(c.Encoder.Background)
	if err != nil {
		return nil, err
	}
	return &snapfit.JPEGEncoder{Resampler: r, Background: bg}, nil
}

// Logger builds a slog.Logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Logging.Level))
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// maxSize is the largest byte budget ParseSize accepts.
const maxSize = math.MaxInt32

// ParseSize parses a byte size such as "900KB", "1.5MB" or "512000".
func ParseSize(s string) (int, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	multiplier := 1
	switch {
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	v := n * float64(multiplier)
	if math.IsNaN(v) || v < 0 || v > maxSize {
		return 0, fmt.Errorf("size %q out of range (0 to %d bytes)", s, maxSize)
	}
	return int(v), nil
}

// ParseColor parses "white", "black" or a "#rrggbb" hex color.
func ParseColor(s string) (color.Color, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "", "white":
		return color.White, nil
	case "black":
		return color.Black, nil
	default:
		b, err := hex.DecodeString(strings.TrimPrefix(v, "#"))
		if err != nil || len(b) != 3 {
			return nil, fmt.Errorf("invalid color %q (use white, black or #rrggbb)", s)
		}
		return color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, nil
	}
}
