// Package config loads the gqldomain YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neoscript99/go-gql-domain/pkg/schema"
	"github.com/neoscript99/go-gql-domain/types"
)

// Cache backends.
const (
	CacheNone     = ""
	CacheMemory   = "memory"
	CacheSQLite   = "sqlite"
	CachePostgres = "postgres"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the client configuration file.
type Config struct {
	Endpoint         string            `yaml:"endpoint"`
	Timeout          time.Duration     `yaml:"timeout"`
	Debug            bool              `yaml:"debug"`
	PageSize         int               `yaml:"page_size"`
	MaxDepth         int               `yaml:"max_depth"`
	DefaultVariables map[string]any    `yaml:"default_variables"`
	Headers          map[string]string `yaml:"headers"`
	ExcludedKeys     []string          `yaml:"excluded_keys"`
	RateLimit        RateLimit         `yaml:"rate_limit"`
	Cache            Cache             `yaml:"cache"`
	Telemetry        Telemetry         `yaml:"telemetry"`
	LogLevel         string            `yaml:"log_level"`
}

// RateLimit bounds outgoing requests. Zero Limit disables it.
type RateLimit struct {
	Limit float64 `yaml:"limit"`
	Burst int     `yaml:"burst"`
}

// Cache selects the field set cache backend.
type Cache struct {
	Backend string        `yaml:"backend"`
	DSN     string        `yaml:"dsn"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// Telemetry configures OTLP trace export. Empty Endpoint disables it.
type Telemetry struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Endpoint:     "http://localhost:8080/graphql",
		Timeout:      10 * time.Second,
		PageSize:     types.DefaultPageSize,
		MaxDepth:     schema.DefaultMaxDepth,
		ExcludedKeys: append([]string(nil), types.DefaultExcludedUpdateKeys...),
		Telemetry:    Telemetry{Service: "gqldomain"},
		LogLevel:     "info",
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks field ranges and backend settings.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("%w: max_depth must be positive", ErrInvalidConfig)
	}
	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheSQLite, CachePostgres:
		if c.Cache.DSN == "" {
			return fmt.Errorf("%w: cache.dsn is required for %s", ErrInvalidConfig, c.Cache.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	return nil
}
