package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Sheet     SheetConfig     `mapstructure:"sheet"`
	Bedrock   BedrockConfig   `mapstructure:"bedrock"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AWSConfig holds shared AWS client settings
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"` // LocalStack or other compatible endpoint
}

// StorageConfig holds snapshot and image storage configuration
type StorageConfig struct {
	Type               string `mapstructure:"type"` // "s3" or "file"
	MenuBucket         string `mapstructure:"menu_bucket"`
	PublicImageBucket  string `mapstructure:"public_image_bucket"`
	StagingImageBucket string `mapstructure:"staging_image_bucket"`
	MenuKey            string `mapstructure:"menu_key"`
	EmbeddingKey       string `mapstructure:"embedding_key"`
	FixtureDir         string `mapstructure:"fixture_dir"`
	PublicBaseURL      string `mapstructure:"public_base_url"` // file mode image URLs
}

// SheetConfig holds the sheet table configuration
type SheetConfig struct {
	TableName string `mapstructure:"table_name"`
}

// BedrockConfig holds model selection
type BedrockConfig struct {
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	TextModel         string  `mapstructure:"text_model"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	EmbeddingRetries  int     `mapstructure:"embedding_retries"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RecommendConfig holds ranking defaults
type RecommendConfig struct {
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
	QueryCacheSize int           `mapstructure:"query_cache_size"`
	QueryCacheTTL  time.Duration `mapstructure:"query_cache_ttl"`
}

// WebhookConfig holds the shared secret for signed endpoints
type WebhookConfig struct {
	Secret  string        `mapstructure:"secret"`
	MaxSkew time.Duration `mapstructure:"max_skew"`
}

// ScheduleConfig holds background job schedules
type ScheduleConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	NightlyCompletion string        `mapstructure:"nightly_completion"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/barease/")

	// Environment variable settings, e.g. BAREASE_AWS_REGION
	v.SetEnvPrefix("BAREASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
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

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// AWS defaults
	v.SetDefault("aws.region", "ap-northeast-1")
	v.SetDefault("aws.endpoint", "")

	// Storage defaults
	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.menu_bucket", "")
	v.SetDefault("storage.public_image_bucket", "")
	v.SetDefault("storage.staging_image_bucket", "")
	v.SetDefault("storage.menu_key", "menu.json")
	v.SetDefault("storage.embedding_key", "embeddings.json")
	v.SetDefault("storage.fixture_dir", "./data/fixtures")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/images")

	// Sheet defaults
	v.SetDefault("sheet.table_name", "")

	// Bedrock defaults
	v.SetDefault("bedrock.embedding_model", "amazon.titan-embed-text-v2:0")
	v.SetDefault("bedrock.text_model", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.requests_per_second", 5)
	v.SetDefault("bedrock.embedding_retries", 3)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "60s")

	// Recommend defaults
	v.SetDefault("recommend.default_limit", 5)
	v.SetDefault("recommend.max_limit", 20)
	v.SetDefault("recommend.query_cache_size", 256)
	v.SetDefault("recommend.query_cache_ttl", "10m")

	// Webhook defaults
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.max_skew", "5m")

	// Schedule defaults
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.nightly_completion", "0 3 * * *")
	v.SetDefault("schedule.timeout", "30m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// IsDevelopment reports whether the server runs in a local environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development" || c.Server.Environment == "test"
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Storage.Type {
	case "s3":
		if config.Storage.MenuBucket == "" {
			return fmt.Errorf("menu bucket is required when storage type is 's3' (set BAREASE_STORAGE_MENU_BUCKET)")
		}
	case "file":
		if config.Storage.FixtureDir == "" {
			return fmt.Errorf("fixture dir is required when storage type is 'file'")
		}
	default:
		return fmt.Errorf("storage type must be 's3' or 'file', got: %s", config.Storage.Type)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Recommend.DefaultLimit <= 0 || config.Recommend.MaxLimit <= 0 {
		return fmt.Errorf("recommend limits must be positive")
	}

	if config.Recommend.DefaultLimit > config.Recommend.MaxLimit {
		return fmt.Errorf("recommend default_limit (%d) exceeds max_limit (%d)",
			config.Recommend.DefaultLimit, config.Recommend.MaxLimit)
	}

	if config.Bedrock.EmbeddingModel == "" {
		return fmt.Errorf("embedding model is required (set BAREASE_BEDROCK_EMBEDDING_MODEL)")
	}

	if config.Webhook.Secret == "" && !config.IsDevelopment() {
		return fmt.Errorf("webhook secret is required (set BAREASE_WEBHOOK_SECRET)")
	}

	return nil
}
