package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv. All are optional.
const (
	EnvServerHost     = "MC_HOST"
	EnvServerPort     = "MC_PORT"
	EnvUsername       = "BOT_USERNAME"
	EnvVersion        = "MC_VERSION"
	EnvHTTPPort       = "HTTP_PORT"
	EnvReconnectDelay = "RECONNECT_DELAY"
	EnvLogLevel       = "LOG_LEVEL"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadAndValidate loads config from a file, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a configuration from environment variables alone,
// applying defaults for anything unset and validating the result.
func FromEnv() (*Config, error) {
	var cfg Config

	cfg.Server.Host = os.Getenv(EnvServerHost)
	cfg.Bot.Username = os.Getenv(EnvUsername)
	cfg.Bot.Version = os.Getenv(EnvVersion)
	cfg.Log.Level = os.Getenv(EnvLogLevel)

	var err error
	if cfg.Server.Port, err = intEnv(EnvServerPort); err != nil {
		return nil, err
	}
	if cfg.HTTP.Port, err = intEnv(EnvHTTPPort); err != nil {
		return nil, err
	}
	if cfg.Reconnect.Delay, err = durationEnv(EnvReconnectDelay); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func intEnv(name string) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	return n, nil
}

func durationEnv(name string) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	return d, nil
}
