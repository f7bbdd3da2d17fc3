// Package config loads gateway configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/offline_gateway/pkg/logger"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
}

// UpstreamConfig describes the origin the gateway mediates for.
type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the bounded network-first timeout, clamped to 3-8s.
func (u UpstreamConfig) Timeout() time.Duration {
	secs := u.TimeoutSeconds
	if secs == 0 {
		secs = 5
	}
	if secs < 3 {
		secs = 3
	}
	if secs > 8 {
		secs = 8
	}
	return time.Duration(secs) * time.Second
}

// CacheConfig controls cache domain versioning and classification.
type CacheConfig struct {
	Version        int    `yaml:"version"`
	APIPrefix      string `yaml:"api_prefix"`
	OfflineDocPath string `yaml:"offline_doc_path"`
}

// SyncConfig controls mutation replay behaviour.
type SyncConfig struct {
	MaxRetries int    `yaml:"max_retries"`
	Schedule   string `yaml:"schedule"`
	Tag        string `yaml:"tag"`
}

// PrewarmConfig is the fixed, versioned pre-warm manifest supplied at
// deploy time.
type PrewarmConfig struct {
	StaticAssets []string `yaml:"static_assets"`
	APIEndpoints []string `yaml:"api_endpoints"`
}

// RedisConfig configures the optional Redis-backed store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DatabaseConfig configures the optional Postgres-backed mutation store.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// Config is the root gateway configuration.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Logging  logger.LoggingConfig `yaml:"logging"`
	Upstream UpstreamConfig       `yaml:"upstream"`
	Cache    CacheConfig          `yaml:"cache"`
	Sync     SyncConfig           `yaml:"sync"`
	Prewarm  PrewarmConfig        `yaml:"prewarm"`
	Redis    RedisConfig          `yaml:"redis"`
	Database DatabaseConfig       `yaml:"database"`
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Upstream: UpstreamConfig{
			TimeoutSeconds: 5,
			MaxRetries:     2,
		},
		Cache: CacheConfig{
			Version:   1,
			APIPrefix: "/api/",
		},
		Sync: SyncConfig{
			MaxRetries: 5,
			Schedule:   "@every 5m",
			Tag:        "offline-sync",
		},
	}
}

// Load reads configuration from GATEWAY_CONFIG or config/gateway.yaml,
// falling back to defaults when the file does not exist.
func Load() (*Config, error) {
	path := os.Getenv("GATEWAY_CONFIG")
	if path == "" {
		path = filepath.Join("config", "gateway.yaml")
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = Default()
		} else {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads configuration from a specific file, layered over the
// defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse gateway config: %w", err)
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Cache.Version < 1 {
		return fmt.Errorf("cache version must be >= 1, got %d", c.Cache.Version)
	}
	if c.Sync.MaxRetries < 1 {
		return fmt.Errorf("sync max_retries must be >= 1, got %d", c.Sync.MaxRetries)
	}
	if !strings.HasPrefix(c.Cache.APIPrefix, "/") {
		return fmt.Errorf("cache api_prefix must start with /, got %q", c.Cache.APIPrefix)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GATEWAY_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GATEWAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("CACHE_VERSION"); v != "" {
		if ver, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Version = ver
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
		if cfg.Database.Driver == "" {
			cfg.Database.Driver = "postgres"
		}
	}
}
