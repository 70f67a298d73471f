package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	WorkerCount   int

	// Conversation flow
	SessionTTL        time.Duration
	ClassifierTimeout time.Duration
	ProviderTimeout   time.Duration
	AvailabilityDays  int

	// Stores
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	LedgerBackend string // "redis" or "memory"

	// Turn queue / async jobs
	UseMemoryQueue        bool
	ConversationQueueURL  string
	ConversationJobsTable string
	JobStoreBackend       string // "dynamodb" or "postgres"

	// Classifier LLM
	LLMProvider    string // "gemini", "bedrock", "keyword"
	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Transcript archive
	ArchiveBucket string

	// Notifications
	EmailProvider    string // "ses", "sendgrid", "stub"
	SendGridAPIKey   string
	NotifyFromEmail  string
	NotifyFromName   string
	BookingOpsInbox  string
	SESConfiguration string

	// HTTP surface
	StaffJWTSecret    string
	CORSAllowedOrigin string
	RateLimitPerSec   float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		WorkerCount:   getEnvAsInt("WORKER_COUNT", 2),

		SessionTTL:        getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
		ProviderTimeout:   getEnvAsDuration("AVAILABILITY_TIMEOUT", 5*time.Second),
		AvailabilityDays:  getEnvAsInt("AVAILABILITY_DAYS", 3),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		LedgerBackend: strings.ToLower(strings.TrimSpace(getEnv("LEDGER_BACKEND", "redis"))),

		UseMemoryQueue:        getEnvAsBool("USE_MEMORY_QUEUE", true),
		ConversationQueueURL:  getEnv("CONVERSATION_QUEUE_URL", ""),
		ConversationJobsTable: getEnv("CONVERSATION_JOBS_TABLE", "conversation_jobs"),
		JobStoreBackend:       strings.ToLower(strings.TrimSpace(getEnv("JOBSTORE_BACKEND", "dynamodb"))),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "auto"))),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ArchiveBucket: getEnv("ARCHIVE_BUCKET", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		NotifyFromEmail:   getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:    getEnv("NOTIFY_FROM_NAME", "MedBook AI"),
		BookingOpsInbox:   getEnv("BOOKING_OPS_INBOX", ""),
		SESConfiguration:  getEnv("SES_CONFIGURATION_SET", ""),
		StaffJWTSecret:    getEnv("STAFF_JWT_SECRET", ""),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitPerSec:   getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
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

// getEnvAsFloat retrieves an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
