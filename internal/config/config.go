package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	PublicBaseURL string

	// Bearer auth for the API (HMAC-signed JWTs carrying user id, email, role).
	AuthJWTSecret string

	// PHI field-level encryption secret. Normalized to 32 bytes at use site.
	PHIEncryptionKey string

	// Twilio inbound SMS webhook verification.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioWebhookURL string
	TwilioReplyFrom  string

	// Stripe webhook verification.
	StripeWebhookSecret string

	// Email notifications.
	EmailProvider  string // "ses", "sendgrid", or "stub"
	FromEmail      string
	FromName       string
	SendGridAPIKey string

	// AWS (S3 compliance archive, SES email, SQS lifecycle jobs).
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ArchiveBucket       string
	LifecycleQueueURL   string

	// Redis (webhook idempotency, SMS opt-out suppression).
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Retention windows.
	ClientRetentionYears  int
	InquiryRetentionYears int
	VisitRetentionYears   int

	// Breach detection thresholds (defaults match the compliance policy).
	BreachWindow         time.Duration
	FailedLoginThreshold int
	PHIReadThreshold     int
	DistinctIPThreshold  int
	AfterHoursThreshold  int
	AfterHoursStart      int // local hour, inclusive
	AfterHoursEnd        int // local hour, exclusive
	BreachTimezone       string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables. A local .env file, if
// present, is loaded first.
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		PHIEncryptionKey: getEnv("PHI_ENCRYPTION_KEY", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWebhookURL: getEnv("TWILIO_WEBHOOK_URL", ""),
		TwilioReplyFrom:  getEnv("TWILIO_REPLY_FROM", ""),

		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		FromEmail:      getEnv("FROM_EMAIL", ""),
		FromName:       getEnv("FROM_NAME", "BrightHarbor Home Care"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ArchiveBucket:       getEnv("ARCHIVE_BUCKET", ""),
		LifecycleQueueURL:   getEnv("LIFECYCLE_QUEUE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ClientRetentionYears:  getEnvAsInt("CLIENT_RETENTION_YEARS", 7),
		InquiryRetentionYears: getEnvAsInt("INQUIRY_RETENTION_YEARS", 2),
		VisitRetentionYears:   getEnvAsInt("VISIT_RETENTION_YEARS", 7),

		BreachWindow:         getEnvAsDuration("BREACH_WINDOW", 24*time.Hour),
		FailedLoginThreshold: getEnvAsInt("BREACH_FAILED_LOGIN_THRESHOLD", 5),
		PHIReadThreshold:     getEnvAsInt("BREACH_PHI_READ_THRESHOLD", 50),
		DistinctIPThreshold:  getEnvAsInt("BREACH_DISTINCT_IP_THRESHOLD", 3),
		AfterHoursThreshold:  getEnvAsInt("BREACH_AFTER_HOURS_THRESHOLD", 10),
		AfterHoursStart:      getEnvAsInt("BREACH_AFTER_HOURS_START", 22),
		AfterHoursEnd:        getEnvAsInt("BREACH_AFTER_HOURS_END", 6),
		BreachTimezone:       getEnv("BREACH_TZ", "UTC"),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
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

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
