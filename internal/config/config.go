// Package config loads the service configuration from a YAML file with
// defaults applied and basic validation on load.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration
type Config struct {
	// ListenAddr is the address the console API listens on
	ListenAddr string `yaml:"listen_addr"`

	// APIToken is the bearer token the console UI must present
	APIToken string `yaml:"api_token"`

	// Platform configures the connection to the marketplace backend
	Platform PlatformConfig `yaml:"platform"`

	// Log configures structured logging
	Log LogConfig `yaml:"log"`
}

// PlatformConfig configures the platform backend client
type PlatformConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`

	// RequestTimeout bounds every call to the platform backend
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// BreakerTimeout is how long the circuit stays open before probing
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`

	// BreakerFailures is the consecutive-failure count that trips the
	// circuit
	BreakerFailures uint32 `yaml:"breaker_failures"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	Development bool   `yaml:"development"`
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Platform.BaseURL == "" {
		cfg.Platform.BaseURL = "http://localhost:9090"
	}
	if cfg.Platform.RequestTimeout == 0 {
		cfg.Platform.RequestTimeout = 10 * time.Second
	}
	if cfg.Platform.BreakerTimeout == 0 {
		cfg.Platform.BreakerTimeout = 30 * time.Second
	}
	if cfg.Platform.BreakerFailures == 0 {
		cfg.Platform.BreakerFailures = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	// Environment overrides for containerized deployments
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("PLATFORM_BASE_URL"); v != "" {
		cfg.Platform.BaseURL = v
	}
	if v := os.Getenv("PLATFORM_TOKEN"); v != "" {
		cfg.Platform.Token = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func validate(cfg *Config) error {
	if cfg.Platform.BaseURL == "" {
		return fmt.Errorf("platform.base_url is required")
	}
	if cfg.Platform.RequestTimeout <= 0 {
		return fmt.Errorf("platform.request_timeout must be positive")
	}
	return nil
}
