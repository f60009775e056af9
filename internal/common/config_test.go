package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_DefaultPort(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port default = %d, want %d", cfg.Server.Port, 8080)
	}
}

func TestConfig_PortEnvOverride(t *testing.T) {
	t.Setenv("MERCADO_PORT", "9090")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after env override, want %d", cfg.Server.Port, 9090)
	}
}

func TestConfig_CacheDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if got := cfg.Cache.TTL(); got != 300*time.Second {
		t.Errorf("Cache.TTL() = %v, want 300s", got)
	}
	if got := cfg.Cache.ValidationTTL(); got != 1200*time.Second {
		t.Errorf("Cache.ValidationTTL() = %v, want 1200s", got)
	}
	if got := cfg.Cache.TrendingTTL(); got != 60*time.Second {
		t.Errorf("Cache.TrendingTTL() = %v, want 60s", got)
	}
}

func TestConfig_CacheTTLEnvOverride(t *testing.T) {
	t.Setenv("MERCADO_CACHE_TTL_SECONDS", "120")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if got := cfg.Cache.TTL(); got != 120*time.Second {
		t.Errorf("Cache.TTL() = %v after env override, want 120s", got)
	}
	if got := cfg.Cache.ValidationTTL(); got != 480*time.Second {
		t.Errorf("Cache.ValidationTTL() = %v, want 480s (4x base)", got)
	}
}

func TestConfig_RateLimitDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.RateLimit.Requests != 100 {
		t.Errorf("RateLimit.Requests default = %d, want 100", cfg.RateLimit.Requests)
	}
	if got := cfg.RateLimit.Window(); got != 60*time.Second {
		t.Errorf("RateLimit.Window() = %v, want 60s", got)
	}
}

func TestConfig_RateLimitEnvOverrides(t *testing.T) {
	t.Setenv("MERCADO_RATE_LIMIT_REQUESTS", "20")
	t.Setenv("MERCADO_RATE_LIMIT_WINDOW", "30")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.RateLimit.Requests != 20 {
		t.Errorf("RateLimit.Requests = %d, want 20", cfg.RateLimit.Requests)
	}
	if got := cfg.RateLimit.Window(); got != 30*time.Second {
		t.Errorf("RateLimit.Window() = %v, want 30s", got)
	}
}

func TestConfig_YahooRetryDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Clients.Yahoo.MaxRetries != 3 {
		t.Errorf("Yahoo.MaxRetries default = %d, want 3", cfg.Clients.Yahoo.MaxRetries)
	}
	if got := cfg.Clients.Yahoo.GetRetryDelay(); got != 1*time.Second {
		t.Errorf("Yahoo.GetRetryDelay() = %v, want 1s", got)
	}
}

func TestConfig_MaxRetriesEnvOverride(t *testing.T) {
	t.Setenv("MERCADO_MAX_RETRIES", "5")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.Yahoo.MaxRetries != 5 {
		t.Errorf("Yahoo.MaxRetries = %d, want 5", cfg.Clients.Yahoo.MaxRetries)
	}
}

func TestConfig_GeminiKeyGoogleEnvFallback(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "google-fallback")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Clients.Gemini.APIKey != "google-fallback" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Clients.Gemini.APIKey, "google-fallback")
	}
}

func TestConfig_InvalidTimeoutFallsBack(t *testing.T) {
	cfg := &YahooConfig{Timeout: "not-a-duration"}
	if got := cfg.GetTimeout(); got != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s (fallback for invalid)", got)
	}
}

func TestConfig_LoadMergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mercado.toml")
	data := []byte("[server]\nport = 9999\n\n[cache]\nttl_seconds = 10\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Cache.TTLSeconds != 10 {
		t.Errorf("Cache.TTLSeconds = %d, want 10", cfg.Cache.TTLSeconds)
	}
	// untouched sections keep defaults
	if cfg.RateLimit.Requests != 100 {
		t.Errorf("RateLimit.Requests = %d, want default 100", cfg.RateLimit.Requests)
	}
}

func TestConfig_LoadMissingFileSkipped(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/mercado.toml")
	if err != nil {
		t.Fatalf("LoadConfig with missing file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
}

func TestConfig_ValidateRequired_DevelopmentPasses(t *testing.T) {
	cfg := NewDefaultConfig()
	if missing := cfg.ValidateRequired(); len(missing) != 0 {
		t.Errorf("expected no missing fields in development, got %v", missing)
	}
}

func TestConfig_ValidateRequired_ProductionJWTDefaultRejected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Environment = "production"
	missing := cfg.ValidateRequired()
	if len(missing) != 1 || missing[0] != "auth.jwt_secret" {
		t.Errorf("expected [auth.jwt_secret], got %v", missing)
	}
}
