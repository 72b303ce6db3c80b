// Package config loads the client configuration from YAML with environment fallbacks.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/aixgo-dev/gremlin/internal/observability"
	"github.com/aixgo-dev/gremlin/pkg/features"
	"github.com/aixgo-dev/gremlin/pkg/transport"
)

// MaxFileSize bounds the size of a configuration file.
const MaxFileSize = 1 << 20

// Config represents the client configuration
type Config struct {
	URL      string `yaml:"url"`
	Provider string `yaml:"provider"`

	// Pool
	PoolSize    int           `yaml:"pool_size"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// Keepalive is a cron spec for pinging idle connections, e.g. "@every 30s". Empty disables it.
	Keepalive string `yaml:"keepalive"`

	// Connection
	ConnectRetries int                   `yaml:"connect_retries"`
	ConnectBackoff time.Duration         `yaml:"connect_backoff"`
	RequestTimeout time.Duration         `yaml:"request_timeout"`
	TLS            *transport.TLSConfig  `yaml:"tls"`
	RateLimit      RateLimitConfig       `yaml:"rate_limit"`
	Tracing        observability.Config  `yaml:"tracing"`
	Registry       SessionRegistryConfig `yaml:"session_registry"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// RateLimitConfig limits the request rate of a client. Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SessionRegistryConfig selects where active session ids are recorded.
type SessionRegistryConfig struct {
	// Store is "memory" or "redis".
	Store     string        `yaml:"store"`
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		URL:            "ws://localhost:8182/gremlin",
		Provider:       "tinkergraph",
		PoolSize:       10,
		IdleTimeout:    5 * time.Minute,
		ConnectRetries: 3,
		ConnectBackoff: 200 * time.Millisecond,
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
		Registry: SessionRegistryConfig{
			Store: "memory",
			TTL:   time.Hour,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("config file too large: exceeds %d bytes", MaxFileSize)
	}

	return Parse(data)
}

// Parse decodes YAML on top of the defaults, then applies environment fallbacks.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv fills fields that were left at their defaults from GREMLIN_URL,
// GREMLIN_PROVIDER and GREMLIN_POOL_SIZE.
func (c *Config) ApplyEnv() error {
	def := Default()

	if v := os.Getenv("GREMLIN_URL"); v != "" && (c.URL == "" || c.URL == def.URL) {
		c.URL = v
	}
	if v := os.Getenv("GREMLIN_PROVIDER"); v != "" && (c.Provider == "" || c.Provider == def.Provider) {
		c.Provider = v
	}
	if v := os.Getenv("GREMLIN_POOL_SIZE"); v != "" && (c.PoolSize == 0 || c.PoolSize == def.PoolSize) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GREMLIN_POOL_SIZE %q: %w", v, err)
		}
		c.PoolSize = n
	}
	return nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid url %q: scheme must be ws or wss", c.URL)
	}

	if _, err := features.For(c.Provider); err != nil {
		return fmt.Errorf("invalid provider: %w", err)
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.ConnectRetries < 0 {
		return fmt.Errorf("connect_retries must not be negative, got %d", c.ConnectRetries)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return errors.New("rate_limit.requests_per_second must not be negative")
	}
	if c.Keepalive != "" {
		if _, err := cron.ParseStandard(c.Keepalive); err != nil {
			return fmt.Errorf("invalid keepalive schedule %q: %w", c.Keepalive, err)
		}
	}

	switch c.Registry.Store {
	case "", "memory":
	case "redis":
		if c.Registry.RedisAddr == "" {
			return errors.New("session_registry.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown session_registry.store %q", c.Registry.Store)
	}

	return nil
}
