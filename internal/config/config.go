package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Port                        string `mapstructure:"PORT"`
	Env                         string `mapstructure:"ENV"`
	LogLevel                    string `mapstructure:"LOG_LEVEL"`
	MLLPAddr                    string `mapstructure:"MLLP_ADDR"`
	MaxBodyBytes                int64  `mapstructure:"MAX_BODY_BYTES"`
	ValidateOnConvert           bool   `mapstructure:"VALIDATE_ON_CONVERT"`
	SliceOverrides              string `mapstructure:"FRCORE_SLICE_OVERRIDES"`
	SourceEndpointFallback      string `mapstructure:"SOURCE_ENDPOINT_FALLBACK"`
	DestinationEndpointFallback string `mapstructure:"DESTINATION_ENDPOINT_FALLBACK"`
}

// SliceOverride replaces the identifier system of one catalog slice.
type SliceOverride struct {
	ResourceType string
	Slice        string
	System       string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MLLP_ADDR", "")
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("VALIDATE_ON_CONVERT", true)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("MLLP_ADDR")
	v.BindEnv("MAX_BODY_BYTES")
	v.BindEnv("VALIDATE_ON_CONVERT")
	v.BindEnv("FRCORE_SLICE_OVERRIDES")
	v.BindEnv("SOURCE_ENDPOINT_FALLBACK")
	v.BindEnv("DESTINATION_ENDPOINT_FALLBACK")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the bridge is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level returns the zerolog level named by LOG_LEVEL, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// ParseSliceOverrides parses FRCORE_SLICE_OVERRIDES, a comma separated list of
// Resource.slice=system entries. Blank entries are skipped.
func (c *Config) ParseSliceOverrides() ([]SliceOverride, error) {
	var out []SliceOverride
	for _, entry := range strings.Split(c.SliceOverrides, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		target, system, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("FRCORE_SLICE_OVERRIDES: %q is not Resource.slice=system", entry)
		}
		rt, slice, ok := strings.Cut(strings.TrimSpace(target), ".")
		if !ok || rt == "" || slice == "" {
			return nil, fmt.Errorf("FRCORE_SLICE_OVERRIDES: %q does not name Resource.slice", target)
		}
		system = strings.TrimSpace(system)
		if system == "" {
			return nil, fmt.Errorf("FRCORE_SLICE_OVERRIDES: %q has an empty system", entry)
		}
		out = append(out, SliceOverride{ResourceType: rt, Slice: slice, System: system})
	}
	return out, nil
}

// Validate checks that the configuration is usable before anything starts.
func (c *Config) Validate() error {
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel))); err != nil {
			return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.LogLevel)
		}
	}
	if _, err := c.ParseSliceOverrides(); err != nil {
		return err
	}
	return nil
}
