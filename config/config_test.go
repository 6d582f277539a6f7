package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"LABELPADEGA_SERVER_PORT",
	"LABELPADEGA_SERVER_ENVIRONMENT",
	"LABELPADEGA_USDA_API_KEY",
	"LABELPADEGA_USDA_BASE_URL",
	"LABELPADEGA_AI_API_KEY",
	"LABELPADEGA_AI_TIMEOUT",
	"LABELPADEGA_CACHE_TYPE",
	"LABELPADEGA_CACHE_DIR",
	"LABELPADEGA_CACHE_REDIS_URL",
	"LABELPADEGA_CACHE_TTL",
	"LABELPADEGA_FETCHER_MAX_ATTEMPTS",
	"LABELPADEGA_RATELIMIT_PER_IP",
	"LABELPADEGA_RATELIMIT_USDA",
	"LABELPADEGA_CHAT_MAX_RETRIES",
	"LABELPADEGA_MATCHING_MIN_CONFIDENCE_THRESHOLD",
}

// clearEnv unsets every variable Load reads for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.MaxUploadBytes != 10<<20 {
			t.Errorf("Server.MaxUploadBytes = %d, want %d", cfg.Server.MaxUploadBytes, 10<<20)
		}
		if cfg.USDA.BaseURL != "https://api.nal.usda.gov/fdc" {
			t.Errorf("USDA.BaseURL = %s, want https://api.nal.usda.gov/fdc", cfg.USDA.BaseURL)
		}
		if cfg.USDA.APIKey != "DEMO_KEY" {
			t.Errorf("USDA.APIKey = %s, want DEMO_KEY", cfg.USDA.APIKey)
		}
		if cfg.USDA.DataTypes != "Survey (FNDDS),Foundation,Branded" {
			t.Errorf("USDA.DataTypes = %s", cfg.USDA.DataTypes)
		}
		if cfg.Cache.Type != "file" {
			t.Errorf("Cache.Type = %s, want file", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 720*time.Hour {
			t.Errorf("Cache.TTL = %v, want 720h", cfg.Cache.TTL)
		}
		if cfg.AI.Timeout != 60*time.Second {
			t.Errorf("AI.Timeout = %v, want 60s", cfg.AI.Timeout)
		}
		if cfg.Fetcher.MaxAttempts != 3 {
			t.Errorf("Fetcher.MaxAttempts = %d, want 3", cfg.Fetcher.MaxAttempts)
		}
		if cfg.Chat.HistoryLimit != 40 || cfg.Chat.ScanHistoryLimit != 10 {
			t.Errorf("Chat limits = %d/%d, want 40/10", cfg.Chat.HistoryLimit, cfg.Chat.ScanHistoryLimit)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.USDA != 1000 {
			t.Errorf("RateLimit.USDA = %d, want 1000", cfg.RateLimit.USDA)
		}
		if cfg.AIEnabled() {
			t.Error("AIEnabled() = true, want false without an API key")
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LABELPADEGA_SERVER_PORT", "9090")
		t.Setenv("LABELPADEGA_SERVER_ENVIRONMENT", "production")
		t.Setenv("LABELPADEGA_USDA_API_KEY", "custom-api-key")
		t.Setenv("LABELPADEGA_USDA_BASE_URL", "https://custom.api.com")
		t.Setenv("LABELPADEGA_AI_API_KEY", "sk-test")
		t.Setenv("LABELPADEGA_AI_TIMEOUT", "30s")
		t.Setenv("LABELPADEGA_CACHE_TYPE", "redis")
		t.Setenv("LABELPADEGA_CACHE_REDIS_URL", "redis://localhost:6379")
		t.Setenv("LABELPADEGA_CACHE_TTL", "24h")
		t.Setenv("LABELPADEGA_RATELIMIT_PER_IP", "200")
		t.Setenv("LABELPADEGA_RATELIMIT_USDA", "2000")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.USDA.APIKey != "custom-api-key" {
			t.Errorf("USDA.APIKey = %s, want custom-api-key", cfg.USDA.APIKey)
		}
		if cfg.USDA.BaseURL != "https://custom.api.com" {
			t.Errorf("USDA.BaseURL = %s, want https://custom.api.com", cfg.USDA.BaseURL)
		}
		if !cfg.AIEnabled() {
			t.Error("AIEnabled() = false, want true")
		}
		if cfg.AI.Timeout != 30*time.Second {
			t.Errorf("AI.Timeout = %v, want 30s", cfg.AI.Timeout)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.USDA != 2000 {
			t.Errorf("RateLimit.USDA = %d, want 2000", cfg.RateLimit.USDA)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LABELPADEGA_CACHE_TYPE", "invalid")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for invalid cache type")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: cache type") {
			t.Errorf("Load() error = %v, want cache type error", err)
		}
	})

	t.Run("fails validation when redis URL missing for redis cache", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LABELPADEGA_CACHE_TYPE", "redis")

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for missing Redis URL")
		}
	})

	t.Run("fails validation for non-positive retries", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LABELPADEGA_FETCHER_MAX_ATTEMPTS", "0")

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for zero fetcher attempts")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	chdirTemp := func(t *testing.T) {
		t.Helper()
		originalDir, err := os.Getwd()
		if err != nil {
			t.Fatalf("Getwd() error = %v", err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatalf("Chdir() error = %v", err)
		}
		t.Cleanup(func() { _ = os.Chdir(originalDir) })
	}

	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		chdirTemp(t)

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		chdirTemp(t)

		envContent := `
# Comment line
TEST_VAR_1=value1

# TEST_COMMENTED=should_not_load
TEST_VAR_2=value2
`
		if err := os.WriteFile(".env", []byte(envContent), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		t.Setenv("TEST_VAR_1", "")
		t.Setenv("TEST_VAR_2", "")
		t.Setenv("TEST_COMMENTED", "")
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		chdirTemp(t)
		t.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Cache:    CacheConfig{Type: "memory"},
			Fetcher:  FetcherConfig{MaxAttempts: 3, BaseDelay: time.Second},
			Chat:     ChatConfig{MaxRetries: 3},
			Server:   ServerConfig{MaxUploadBytes: 10 << 20},
			Matching: MatchingConfig{MinConfidenceThreshold: 40},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid memory config", func(*Config) {}, false},
		{"invalid cache type", func(c *Config) { c.Cache.Type = "invalid-type" }, true},
		{"redis with URL", func(c *Config) { c.Cache.Type = "redis"; c.Cache.RedisURL = "redis://localhost:6379" }, false},
		{"redis without URL", func(c *Config) { c.Cache.Type = "redis" }, true},
		{"file without dir", func(c *Config) { c.Cache.Type = "file" }, true},
		{"file with dir", func(c *Config) { c.Cache.Type = "file"; c.Cache.Dir = "./cache" }, false},
		{"zero fetcher attempts", func(c *Config) { c.Fetcher.MaxAttempts = 0 }, true},
		{"zero fetcher base delay", func(c *Config) { c.Fetcher.BaseDelay = 0 }, true},
		{"zero chat retries", func(c *Config) { c.Chat.MaxRetries = 0 }, true},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadBytes = 0 }, true},
		{"threshold above 100", func(c *Config) { c.Matching.MinConfidenceThreshold = 120 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
