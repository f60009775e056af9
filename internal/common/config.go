// Package common provides shared utilities for Mercado
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Mercado
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Cache       CacheConfig     `toml:"cache"`
	RateLimit   RateLimitConfig `toml:"ratelimit"`
	Valuation   ValuationConfig `toml:"valuation"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds storage paths for the BadgerHold areas.
type StorageConfig struct {
	Users   AreaConfig `toml:"users"`   // User accounts (BadgerHold)
	Catalog AreaConfig `toml:"catalog"` // B3 symbol catalog (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Yahoo  YahooConfig  `toml:"yahoo"`
	BCB    BCBConfig    `toml:"bcb"`
	Gemini GeminiConfig `toml:"gemini"`
}

// YahooConfig holds Yahoo Finance client configuration
type YahooConfig struct {
	BaseURL    string `toml:"base_url"`
	RateLimit  int    `toml:"rate_limit"`
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"`
	RetryDelay string `toml:"retry_delay"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetRetryDelay parses and returns the base retry delay
func (c *YahooConfig) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return 1 * time.Second
	}
	return d
}

// BCBConfig holds Banco Central SGS client configuration
type BCBConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *BCBConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// CacheConfig holds in-memory cache configuration.
// TTLSeconds is the base TTL; validation results are held 4x longer
// since listing status rarely changes, and trending is held for
// TrendingTTLSeconds since movers churn intraday.
type CacheConfig struct {
	TTLSeconds         int `toml:"ttl_seconds"`
	TrendingTTLSeconds int `toml:"trending_ttl_seconds"`
	ValidationFactor   int `toml:"validation_factor"`
	MaxEntries         int `toml:"max_entries"`
}

// TTL returns the base cache TTL.
func (c *CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// ValidationTTL returns the TTL for ticker validation results.
func (c *CacheConfig) ValidationTTL() time.Duration {
	factor := c.ValidationFactor
	if factor <= 0 {
		factor = 4
	}
	return time.Duration(factor) * c.TTL()
}

// TrendingTTL returns the TTL for trending results.
func (c *CacheConfig) TrendingTTL() time.Duration {
	if c.TrendingTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TrendingTTLSeconds) * time.Second
}

// RateLimitConfig holds inbound sliding-window limiter configuration
type RateLimitConfig struct {
	Requests      int `toml:"requests"`
	WindowSeconds int `toml:"window_seconds"`
}

// Window returns the sliding window duration.
func (c *RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// ValuationConfig holds valuation model parameters
type ValuationConfig struct {
	DiscountRate    float64  `toml:"discount_rate"`
	FallbackRf      float64  `toml:"fallback_risk_free"`
	FallbackERP     float64  `toml:"fallback_equity_premium"`
	ComparablePeers []string `toml:"comparable_peers"`
	BenchmarkIndex  string   `toml:"benchmark_index"`
}

// AuthConfig holds authentication configuration for JWT.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Users:   AreaConfig{Path: "data/users"},
			Catalog: AreaConfig{Path: "data/catalog"},
		},
		Clients: ClientsConfig{
			Yahoo: YahooConfig{
				BaseURL:    "https://query1.finance.yahoo.com",
				RateLimit:  5,
				Timeout:    "30s",
				MaxRetries: 3,
				RetryDelay: "1s",
			},
			BCB: BCBConfig{
				BaseURL: "https://api.bcb.gov.br",
				Timeout: "15s",
			},
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		Cache: CacheConfig{
			TTLSeconds:         300,
			TrendingTTLSeconds: 60,
			ValidationFactor:   4,
			MaxEntries:         10000,
		},
		RateLimit: RateLimitConfig{
			Requests:      100,
			WindowSeconds: 60,
		},
		Valuation: ValuationConfig{
			DiscountRate:    0.10,
			FallbackRf:      0.04,
			FallbackERP:     0.06,
			ComparablePeers: []string{"VALE3.SA", "ITUB4.SA", "BBDC4.SA"},
			BenchmarkIndex:  "^BVSP",
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MERCADO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("MERCADO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("MERCADO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("MERCADO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("MERCADO_DATA_PATH"); path != "" {
		config.Storage.Users.Path = filepath.Join(path, "users")
		config.Storage.Catalog.Path = filepath.Join(path, "catalog")
	}

	if v := os.Getenv("MERCADO_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("MERCADO_RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RateLimit.Requests = n
		}
	}
	if v := os.Getenv("MERCADO_RATE_LIMIT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.RateLimit.WindowSeconds = n
		}
	}
	if v := os.Getenv("MERCADO_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Clients.Yahoo.MaxRetries = n
		}
	}

	// Auth overrides
	if v := os.Getenv("MERCADO_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("MERCADO_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}

	// Gemini key: dedicated var first, then the common Google fallback
	for _, name := range []string{"GEMINI_API_KEY", "MERCADO_GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Clients.Gemini.APIKey = v
			break
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ValidateRequired reports config fields that must be set before serving
// in production. Development defaults are accepted outside production.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if !c.IsProduction() {
		return missing
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "dev-jwt-secret-change-in-production" {
		missing = append(missing, "auth.jwt_secret")
	}
	if c.Clients.Yahoo.BaseURL == "" {
		missing = append(missing, "clients.yahoo.base_url")
	}
	return missing
}
