package config

import (
	"fmt"
	"time"

	"github.com/SlenderjuniorxD/UPDS-TIM/internal/configs/env"
)

// Config holds all configuration for the application
type Config struct {
	// MongoDB
	MongoURI    string
	MongoDBName string

	// Redis
	RedisHost               string
	RedisPassword           string
	RedisStreamKey          string
	RedisConsumerGroup      string
	RedisDeadLetterKey      string
	StreamRetentionDuration time.Duration

	// VirusTotal-compatible scanner
	ScannerBaseURL      string
	ScannerAPIKey       string
	ScanPollInterval    time.Duration
	ScanPollMaxAttempts int

	// Cloudinary-compatible file store
	FileStoreBaseURL      string
	FileStoreUploadPreset string

	// Text extractor service
	ExtractorBaseURL string
	ExtractorAPIKey  string

	// JWT
	JWTSecret string
	JWTIssuer string

	// Rate Limiting
	RateLimitRPS float64

	// Concurrency
	MaxConcurrentVetting int

	// Vetting
	VettingTimeout     time.Duration
	RejectionThreshold int
	TitleWeight        float64
	ContentWeight      float64

	// Logging
	LogLevel string

	// Server
	ServerPort string
}

func Load() (*Config, error) {
	cfg := &Config{}

	// MongoDB
	cfg.MongoURI = env.GetEnv("MONGO_URI", "")
	cfg.MongoDBName = env.GetEnv("MONGO_DB_NAME", "")

	// Redis
	cfg.RedisHost = env.GetEnv("REDIS_HOST", "localhost:6379")
	cfg.RedisPassword = env.GetEnv("REDIS_PASSWORD", "")
	cfg.RedisStreamKey = env.GetEnv("REDIS_STREAM_KEY", "vetting:uploads")
	cfg.RedisConsumerGroup = env.GetEnv("REDIS_CONSUMER_GROUP", "vetting:group")
	cfg.RedisDeadLetterKey = env.GetEnv("REDIS_DEAD_LETTER_KEY", "vetting:dlq")
	retentionHours := env.GetEnvInt("STREAM_RETENTION_HOURS", 24)
	cfg.StreamRetentionDuration = time.Duration(retentionHours) * time.Hour

	// Scanner
	cfg.ScannerBaseURL = env.GetEnv("SCANNER_BASE_URL", "https://www.virustotal.com/api/v3")
	cfg.ScannerAPIKey = env.GetEnv("SCANNER_API_KEY", "")
	cfg.ScanPollInterval = env.GetEnvSeconds("SCAN_POLL_INTERVAL_SECONDS", 5)
	cfg.ScanPollMaxAttempts = env.GetEnvInt("SCAN_POLL_MAX_ATTEMPTS", 12)

	// File store
	cfg.FileStoreBaseURL = env.GetEnv("FILE_STORE_BASE_URL", "")
	cfg.FileStoreUploadPreset = env.GetEnv("FILE_STORE_UPLOAD_PRESET", "upds-upload")

	// Text extractor
	cfg.ExtractorBaseURL = env.GetEnv("EXTRACTOR_BASE_URL", "")
	cfg.ExtractorAPIKey = env.GetEnv("EXTRACTOR_API_KEY", "")

	// JWT
	cfg.JWTSecret = env.GetEnv("JWT_SECRET", "")
	cfg.JWTIssuer = env.GetEnv("JWT_ISSUER", "upds-tim")

	// Rate Limiting
	cfg.RateLimitRPS = env.GetEnvFloat("RATE_LIMIT_RPS", 10.0)

	// Concurrency
	cfg.MaxConcurrentVetting = env.GetEnvInt("MAX_CONCURRENT_VETTING", 5)

	// Vetting
	timeoutMinutes := env.GetEnvInt("VETTING_TIMEOUT_MINUTES", 10)
	cfg.VettingTimeout = time.Duration(timeoutMinutes) * time.Minute
	cfg.RejectionThreshold = env.GetEnvInt("PLAGIARISM_REJECTION_THRESHOLD", 50)
	cfg.TitleWeight = env.GetEnvFloat("PLAGIARISM_TITLE_WEIGHT", 0.2)
	cfg.ContentWeight = env.GetEnvFloat("PLAGIARISM_CONTENT_WEIGHT", 0.8)

	// Logging
	cfg.LogLevel = env.GetEnv("LOG_LEVEL", "info")

	// Server
	cfg.ServerPort = env.GetEnv("SERVER_PORT", "8080")

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MongoDBName == "" {
		return fmt.Errorf("MONGO_DB_NAME is required")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.ScannerAPIKey == "" {
		return fmt.Errorf("SCANNER_API_KEY is required")
	}
	if c.FileStoreBaseURL == "" {
		return fmt.Errorf("FILE_STORE_BASE_URL is required")
	}
	if c.ExtractorBaseURL == "" {
		return fmt.Errorf("EXTRACTOR_BASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxConcurrentVetting <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_VETTING must be greater than 0")
	}
	if c.ScanPollMaxAttempts <= 0 {
		return fmt.Errorf("SCAN_POLL_MAX_ATTEMPTS must be greater than 0")
	}
	if c.RejectionThreshold < 0 || c.RejectionThreshold > 100 {
		return fmt.Errorf("PLAGIARISM_REJECTION_THRESHOLD must be between 0 and 100")
	}
	if c.StreamRetentionDuration <= 0 {
		return fmt.Errorf("STREAM_RETENTION_HOURS must be greater than 0")
	}
	return nil
}
