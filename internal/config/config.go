package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string
	// DBTxTimeout bounds a single booking transaction.
	DBTxTimeout time.Duration
	// Timezone is the wall-clock zone weekly availability is expressed in.
	Timezone string

	RedisAddr            string
	RedisPassword        string
	RedisTLS             bool
	AvailabilityCacheTTL time.Duration

	AuthJWTSecret      string
	CORSAllowedOrigins string
	RateLimitRPS       float64
	RateLimitBurst     int

	// VideoProvider is "opentok" or "fake".
	VideoProvider       string
	VideoAPIKey         string
	VideoAPISecret      string
	VideoBaseURL        string
	VideoMaxAttempts    int
	VideoAttemptTimeout time.Duration
	VideoRetryBackoff   time.Duration

	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSEndpointOverride   string
	BookingEventsQueueURL string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	// EmailProvider is "sendgrid", "ses" or "stub".
	EmailProvider  string
	EmailFromEmail string
	EmailFromName  string
	SendGridAPIKey string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBTxTimeout: getEnvAsDuration("DB_TX_TIMEOUT", 10*time.Second),
		Timezone:    getEnv("SCHEDULE_TIMEZONE", "UTC"),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisTLS:             getEnvAsBool("REDIS_TLS", false),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", 10*time.Minute),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		VideoProvider:       strings.ToLower(strings.TrimSpace(getEnv("VIDEO_PROVIDER", "fake"))),
		VideoAPIKey:         getEnv("VIDEO_API_KEY", ""),
		VideoAPISecret:      getEnv("VIDEO_API_SECRET", ""),
		VideoBaseURL:        getEnv("VIDEO_BASE_URL", ""),
		VideoMaxAttempts:    getEnvAsInt("VIDEO_MAX_ATTEMPTS", 3),
		VideoAttemptTimeout: getEnvAsDuration("VIDEO_ATTEMPT_TIMEOUT", 5*time.Second),
		VideoRetryBackoff:   getEnvAsDuration("VIDEO_RETRY_BACKOFF", 200*time.Millisecond),

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		EmailFromEmail: getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", ""),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	return scheduling.Location(c.Timezone)
}

// Validate reports settings that would make the API unusable outside development.
func (c *Config) Validate() error {
	if c.AuthJWTSecret == "" && c.Env != "development" {
		return fmt.Errorf("config: AUTH_JWT_SECRET is required in %s", c.Env)
	}
	switch c.VideoProvider {
	case "fake":
		if c.Env == "production" {
			return fmt.Errorf("config: VIDEO_PROVIDER=fake is not allowed in production")
		}
	case "opentok":
		if c.VideoAPIKey == "" || c.VideoAPISecret == "" {
			return fmt.Errorf("config: VIDEO_API_KEY and VIDEO_API_SECRET are required for opentok")
		}
	default:
		return fmt.Errorf("config: unknown VIDEO_PROVIDER %q", c.VideoProvider)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: SCHEDULE_TIMEZONE: %w", err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
