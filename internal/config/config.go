package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the agent configuration. APIBaseURL and APIKey are only the
// defaults: the values persisted through settings take precedence at runtime.
type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	APIBaseURL   string
	APIKey       string
	ScanSource   string
	WorkshopMode bool

	UploadStrategy           string
	CompressedAttemptTimeout time.Duration
	OriginalAttemptTimeout   time.Duration
	DuplicateFieldNames      bool
	FeedbackTimeout          time.Duration
	HealthTimeout            time.Duration
	ProbeInterval            time.Duration

	CompressMaxEdge int
	CompressQuality int

	HistoryLimit        int
	NormalizerCacheSize int

	StoreBackend       string
	StoreNamespace     string
	SQLitePath         string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	MongoURI           string
	MongoDatabase      string
	MongoCollection    string
	AzureAccountName   string
	AzureAccountKey    string
	AzureContainerName string
	AzureServiceURL    string

	OCRLanguage string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	// A missing .env file is fine; real environment variables still apply
	_ = godotenv.Load()

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "127.0.0.1"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 45*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 32*1024*1024), // 32MB, two full-size photos
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),

		APIBaseURL:   getEnvOrDefault("SCANKEY_API_BASE_URL", "https://api.scankey.tech/v1"),
		APIKey:       getEnvOrDefault("SCANKEY_API_KEY", ""),
		ScanSource:   getEnvOrDefault("SCANKEY_SOURCE", "app"),
		WorkshopMode: parseBoolOrDefault("SCANKEY_WORKSHOP_MODE", false),

		UploadStrategy:           getEnvOrDefault("UPLOAD_STRATEGY", "quality_fallback"),
		CompressedAttemptTimeout: parseDurationOrDefault("COMPRESSED_ATTEMPT_TIMEOUT", 12*time.Second),
		OriginalAttemptTimeout:   parseDurationOrDefault("ORIGINAL_ATTEMPT_TIMEOUT", 15*time.Second),
		DuplicateFieldNames:      parseBoolOrDefault("DUPLICATE_FIELD_NAMES", true),
		FeedbackTimeout:          parseDurationOrDefault("FEEDBACK_TIMEOUT", 10*time.Second),
		HealthTimeout:            parseDurationOrDefault("HEALTH_TIMEOUT", 5*time.Second),
		ProbeInterval:            parseDurationOrDefault("CONNECTIVITY_PROBE_INTERVAL", 30*time.Second),

		CompressMaxEdge: int(parseIntOrDefault("COMPRESS_MAX_EDGE", 1280)),
		CompressQuality: int(parseIntOrDefault("COMPRESS_QUALITY", 70)),

		HistoryLimit:        int(parseIntOrDefault("HISTORY_LIMIT", 50)),
		NormalizerCacheSize: int(parseIntOrDefault("NORMALIZER_CACHE_SIZE", 512)), // LRU bound; 0 keeps every result

		StoreBackend:       getEnvOrDefault("STORE_BACKEND", "sqlite"),
		StoreNamespace:     getEnvOrDefault("STORE_NAMESPACE", "scankey"),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "data/scankey.db"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:            int(parseIntOrDefault("REDIS_DB", 0)),
		MongoURI:           getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnvOrDefault("MONGO_DATABASE", "scankey"),
		MongoCollection:    getEnvOrDefault("MONGO_COLLECTION", "kv"),
		AzureAccountName:   getEnvOrDefault("AZURE_STORAGE_ACCOUNT", ""),
		AzureAccountKey:    getEnvOrDefault("AZURE_STORAGE_KEY", ""),
		AzureContainerName: getEnvOrDefault("AZURE_STORAGE_CONTAINER", "scankey"),
		AzureServiceURL:    getEnvOrDefault("AZURE_STORAGE_ENDPOINT", ""),

		OCRLanguage: getEnvOrDefault("OCR_LANGUAGE", "eng"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail much later at runtime.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.CompressedAttemptTimeout <= 0 || c.OriginalAttemptTimeout <= 0 ||
		c.FeedbackTimeout <= 0 || c.HealthTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, compressed=%s, original=%s, feedback=%s, health=%s)",
			c.RequestTimeout, c.CompressedAttemptTimeout, c.OriginalAttemptTimeout, c.FeedbackTimeout, c.HealthTimeout)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be > 0 (got %d)", c.HistoryLimit)
	}
	if c.CompressQuality < 1 || c.CompressQuality > 100 {
		return fmt.Errorf("COMPRESS_QUALITY must be in [1,100] (got %d)", c.CompressQuality)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
