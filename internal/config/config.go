package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the bridge
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	PetsSeries PetsSeriesConfig `mapstructure:"petsseries"`
	Tuya       TuyaConfig       `mapstructure:"tuya"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Host           string  `mapstructure:"host"`
	Port           int     `mapstructure:"port"`
	CacheSize      int     `mapstructure:"cache_size"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type PetsSeriesConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// TuyaConfig describes the optional local device backend. The backend is
// considered configured only when ClientID, Host and LocalKey are all set.
type TuyaConfig struct {
	ClientID string  `mapstructure:"client_id"`
	Host     string  `mapstructure:"host"`
	LocalKey string  `mapstructure:"local_key"`
	Version  float64 `mapstructure:"version"`
}

// Configured reports whether the local backend triple is complete.
func (t TuyaConfig) Configured() bool {
	return t.ClientID != "" && t.Host != "" && t.LocalKey != ""
}

type RefreshConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	CallDelay time.Duration `mapstructure:"call_delay"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from a YAML file, expanding $VAR references from
// the environment before parsing so secrets can stay out of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	expanded := os.ExpandEnv(string(data))
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.PetsSeries.AccessToken == "" || config.PetsSeries.RefreshToken == "" {
		return nil, fmt.Errorf("petsseries access_token and refresh_token are required")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_size", 256)
	v.SetDefault("server.rate_limit", 5.0)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("petsseries.base_url", "https://petsseries-backend.prod.eu-hs.iot.versuni.com")

	v.SetDefault("tuya.version", 3.4)

	v.SetDefault("refresh.interval", "5m")
	v.SetDefault("refresh.call_delay", "500ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
