package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	USDA          USDAConfig
	OpenFoodFacts OpenFoodFactsConfig
	AI            AIConfig
	Cache         CacheConfig
	Fetcher       FetcherConfig
	RateLimit     RateLimitConfig
	Log           LogConfig
	Data          DataConfig
	Chat          ChatConfig
	Matching      MatchingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// USDAConfig holds USDA API configuration
type USDAConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	SearchPageSize int    `mapstructure:"search_page_size"`
	DataTypes      string `mapstructure:"data_types"`
}

// OpenFoodFactsConfig holds Open Food Facts API configuration
type OpenFoodFactsConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// AIConfig holds the hosted model configuration. An empty API key disables the AI features.
type AIConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int64         `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "file", "memory" or "redis"
	Dir             string        `mapstructure:"dir"`
	RedisURL        string        `mapstructure:"redis_url"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	TTL             time.Duration `mapstructure:"ttl"`
	ProductTTL      time.Duration `mapstructure:"product_ttl"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// FetcherConfig holds the retry policy of upstream HTTP calls
type FetcherConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute per client
	USDA  int `mapstructure:"usda"`   // requests per hour
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// DataConfig locates the regulation datasets
type DataConfig struct {
	Dir  string `mapstructure:"dir"`
	Seed bool   `mapstructure:"seed"`
}

// ChatConfig holds chat session configuration
type ChatConfig struct {
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	HistoryLimit     int           `mapstructure:"history_limit"`
	ScanHistoryLimit int           `mapstructure:"scan_history_limit"`
	SessionIdleTTL   time.Duration `mapstructure:"session_idle_ttl"`
}

// MatchingConfig holds product matcher configuration
type MatchingConfig struct {
	MinConfidenceThreshold float64 `mapstructure:"min_confidence_threshold"`
	EnableFuzzyMatching    bool    `mapstructure:"enable_fuzzy_matching"`
	FuzzyEditDistance      int     `mapstructure:"fuzzy_edit_distance"`
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/labelpadega/")

	// LABELPADEGA_CACHE_REDIS_URL maps to cache.redis_url
	v.SetEnvPrefix("LABELPADEGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory when present.
// Variables already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default so
// AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "http://localhost:3000"})
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("usda.api_key", "DEMO_KEY")
	v.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc")
	v.SetDefault("usda.search_page_size", 10)
	v.SetDefault("usda.data_types", "Survey (FNDDS),Foundation,Branded")

	v.SetDefault("openfoodfacts.base_url", "https://world.openfoodfacts.org")

	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", "claude-sonnet-4-5")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.cache_ttl", "168h") // 7 days

	v.SetDefault("cache.type", "file")
	v.SetDefault("cache.dir", "./cache")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_prefix", "labelpadega:")
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.product_ttl", "24h")
	v.SetDefault("cache.retention", "720h")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("fetcher.max_attempts", 3)
	v.SetDefault("fetcher.base_delay", "1s")
	v.SetDefault("fetcher.timeout", "10s")
	v.SetDefault("fetcher.user_agent", "LabelPadega/2.0")

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.usda", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.seed", true)

	v.SetDefault("chat.max_retries", 3)
	v.SetDefault("chat.retry_delay", "1s")
	v.SetDefault("chat.history_limit", 40)
	v.SetDefault("chat.scan_history_limit", 10)
	v.SetDefault("chat.session_idle_ttl", "24h")

	v.SetDefault("matching.min_confidence_threshold", 40.0)
	v.SetDefault("matching.enable_fuzzy_matching", true)
	v.SetDefault("matching.fuzzy_edit_distance", 2)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Cache.Type {
	case "file", "memory", "redis":
	default:
		return fmt.Errorf("cache type must be 'file', 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.Cache.Type == "file" && config.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required when cache type is 'file'")
	}

	if config.Fetcher.MaxAttempts <= 0 {
		return fmt.Errorf("fetcher max attempts must be positive, got: %d", config.Fetcher.MaxAttempts)
	}

	if config.Fetcher.BaseDelay <= 0 {
		return fmt.Errorf("fetcher base delay must be positive, got: %s", config.Fetcher.BaseDelay)
	}

	if config.Chat.MaxRetries <= 0 {
		return fmt.Errorf("chat max retries must be positive, got: %d", config.Chat.MaxRetries)
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got: %d", config.Server.MaxUploadBytes)
	}

	if config.Matching.MinConfidenceThreshold < 0 || config.Matching.MinConfidenceThreshold > 100 {
		return fmt.Errorf("min confidence threshold must be between 0 and 100, got: %.1f", config.Matching.MinConfidenceThreshold)
	}

	return nil
}

// AIEnabled reports whether a model API key is configured
func (c *Config) AIEnabled() bool {
	return strings.TrimSpace(c.AI.APIKey) != ""
}
