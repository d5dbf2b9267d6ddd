package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"yfinance-go/src/helpers"
	"yfinance-go/src/models"
	"yfinance-go/src/network"
	"yfinance-go/src/session"
)

// Environment variables that override the YAML file. A .env file in the
// working directory is loaded first if present.
const (
	EnvProxy     = "YF_PROXY"
	EnvRetries   = "YF_RETRIES"
	EnvTimeout   = "YF_TIMEOUT"
	EnvUserAgent = "YF_USER_AGENT"
	EnvBackend   = "YF_BACKEND"
	EnvDBDSN     = "YF_DB_DSN"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Default returns a configuration that works without any file.
func Default() *Config {
	return &Config{MConfig: &models.MConfig{
		Name:     "yfinance",
		Host:     "127.0.0.1",
		Port:     8080,
		LogLevel: "INFO",
		Network: models.MNetworkConfig{
			Backend:          "http",
			RequestTimeout:   network.DefaultTimeout,
			MaxRetries:       3,
			RetryBaseDelayMs: 1000,
			UserAgent:        network.DefaultUserAgent,
		},
		Session: models.MSessionConfig{
			BaseURL:   session.DefaultBaseURL,
			CookieURL: session.DefaultCookieURL,
			CrumbURL:  session.DefaultCrumbURL,
		},
		Storage: models.MStorageConfig{
			DBType:        "none",
			DBPath:        "yfinance.db",
			RetentionDays: 30,
		},
		Poller: models.MPollerConfig{
			Datasets:              []string{"info"},
			UpdateIntervalSeconds: 300,
			ConcurrentRequests:    4,
		},
	}}
}

// -----------------------------------------------------------------------------

// NewConfig loads the YAML file over Default(), applies environment
// overrides and validates the result. An empty path skips the file.
func NewConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, config.MConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	}

	// Missing .env is the normal case.
	_ = godotenv.Load()

	if err := config.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides fields from the YF_* variables returned by getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v, ok := lookup(getenv, EnvProxy); ok {
		c.Network.Proxy = v
	}
	if v, ok := lookup(getenv, EnvUserAgent); ok {
		c.Network.UserAgent = v
	}
	if v, ok := lookup(getenv, EnvBackend); ok {
		c.Network.Backend = strings.ToLower(v)
	}
	if v, ok := lookup(getenv, EnvRetries); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRetries, err)
		}
		c.Network.MaxRetries = n
	}
	if v, ok := lookup(getenv, EnvTimeout); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Network.RequestTimeout = n
	}
	if v, ok := lookup(getenv, EnvDBDSN); ok {
		if strings.HasPrefix(strings.ToLower(c.Storage.DBType), "postgres") {
			c.Storage.DBConnectionString = v
		} else {
			c.Storage.DBPath = v
		}
	}
	return nil
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	return v, v != ""
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Network
	switch c.Network.Backend {
	case "", "http", "resty":
	default:
		return fmt.Errorf("unknown network backend %q", c.Network.Backend)
	}
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.RetryBaseDelayMs < 0 {
		return fmt.Errorf("retry base delay cannot be negative")
	}
	if c.Network.Proxy != "" && !helpers.ValidateProxy(c.Network.Proxy) {
		return fmt.Errorf("invalid proxy %q", c.Network.Proxy)
	}

	// Storage
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database type %q", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("data retention days cannot be negative")
	}

	// Poller
	if c.Poller.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("update interval must be greater than 0")
	}
	if c.Poller.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}
	for _, symbol := range c.Poller.Symbols {
		if err := helpers.ValidateSymbol(symbol); err != nil {
			return err
		}
	}
	for i, name := range c.Poller.Datasets {
		if name == "" {
			return fmt.Errorf("dataset %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
