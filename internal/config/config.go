// Package config provides configuration types and loading for the
// governor server.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the top-level server configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Storage configures the persistent policy store.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Envelope configures sealing behavior.
	Envelope EnvelopeConfig `yaml:"envelope" mapstructure:"envelope"`

	// Cache configures the bounded-TTL read cache for catalog rows.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Auth configures API-key auth for the HTTP API. When no keys are
	// configured the API is open; intended for local development only.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// DevMode enables development conveniences (debug logging).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// HTTPAddr is the listen address (e.g., ":8080").
	HTTPAddr string `yaml:"http_addr" mapstructure:"http_addr" validate:"required"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StorageConfig configures the sqlite policy store.
type StorageConfig struct {
	// Path is the sqlite database file, or ":memory:" for ephemeral.
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
	// Timeout bounds every store call made while sealing, verifying, or
	// gating. On timeout those operations fail closed.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// EnvelopeConfig configures sealing behavior.
type EnvelopeConfig struct {
	// DefaultTTL bounds envelope validity when the request does not set
	// its own. Zero means envelopes do not expire.
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
}

// CacheConfig configures the catalog read cache.
type CacheConfig struct {
	// Enabled turns the cache on. Policies are never cached either way.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// TTL is the per-entry lifetime. Must stay at or below
	// PropagationBound.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// PropagationBound is how quickly catalog changes must become visible.
	PropagationBound time.Duration `yaml:"propagation_bound" mapstructure:"propagation_bound"`
	// MaxEntries bounds cache size.
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries" validate:"omitempty,gt=0"`
}

// APIKeyConfig is one configured API key, stored as a hash.
type APIKeyConfig struct {
	// Name identifies the key in logs.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`
	// KeyHash is a sha256:<hex> or argon2id hash of the raw key.
	KeyHash string `yaml:"key_hash" mapstructure:"key_hash" validate:"required"`
}

// AuthConfig configures API-key auth.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys" mapstructure:"api_keys" validate:"omitempty,dive"`
}

// Defaults applied by Load when fields are unset.
const (
	DefaultHTTPAddr         = ":8080"
	DefaultLogLevel         = "info"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultStorageTimeout   = 5 * time.Second
	DefaultCacheTTL         = 30 * time.Second
	DefaultPropagationBound = 60 * time.Second
	DefaultCacheMaxEntries  = 1024
)

// Load unmarshals the Viper-backed configuration, applies defaults, and
// validates it.
func Load() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file; env vars and defaults still apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./governor.db"
	}
	if c.Storage.Timeout <= 0 {
		c.Storage.Timeout = DefaultStorageTimeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.PropagationBound <= 0 {
		c.Cache.PropagationBound = DefaultPropagationBound
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultCacheMaxEntries
	}
}

// Validate checks structural constraints and the cache TTL bound.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Cache.Enabled && c.Cache.TTL > c.Cache.PropagationBound {
		return fmt.Errorf(
			"cache.ttl (%s) must not exceed cache.propagation_bound (%s): stale catalog data would outlive the propagation guarantee",
			c.Cache.TTL, c.Cache.PropagationBound)
	}
	return nil
}
