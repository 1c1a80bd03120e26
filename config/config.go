package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port    string
	AppURL  string
	LogMode string

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBDSN      string // overrides the discrete DB_* settings when set

	JWTKey string

	RequestTimeout time.Duration

	GatewayBaseURL          string
	GatewaySecretKey        string
	GatewayWebhookSecret    string
	GatewayTimeout          time.Duration
	GatewayWebhookTolerance time.Duration

	RedisAddr         string
	RateLimitFailOpen bool   // allow requests when the counter backend fails
	RateLimitMode     string // LIVE or DRY_RUN
	RateLimitFile     string // optional YAML overrides for rate limit rules

	SendGridAPIKey string
	EmailSender    string

	WebhookRetentionDays int
	JanitorSchedule      string

	OtelEnabled     bool
	OtelServiceName string
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:    getEnv("PORT", "3000"),
		AppURL:  strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		LogMode: getEnv("LOG_MODE", "development"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "coursehub"),
		DBDSN:      getEnv("DB_DSN", ""),

		JWTKey: getEnv("JWT_SECRET_KEY", "defaultSecret"),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		GatewayBaseURL:          strings.TrimRight(getEnv("GATEWAY_BASE_URL", "https://api.stripe.com"), "/"),
		GatewaySecretKey:        getEnv("GATEWAY_SECRET_KEY", ""),
		GatewayWebhookSecret:    getEnv("GATEWAY_WEBHOOK_SECRET", ""),
		GatewayTimeout:          getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
		GatewayWebhookTolerance: getEnvDuration("GATEWAY_WEBHOOK_TOLERANCE", 5*time.Minute),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RateLimitFailOpen: getEnvBool("RATE_LIMIT_FAIL_OPEN", true),
		RateLimitMode:     strings.ToUpper(getEnv("RATE_LIMIT_MODE", defaultRateLimitMode())),
		RateLimitFile:     getEnv("RATE_LIMIT_FILE", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailSender:    getEnv("EMAIL_SENDER", "no-reply@coursehub.local"),

		WebhookRetentionDays: getEnvInt("WEBHOOK_RETENTION_DAYS", 30),
		JanitorSchedule:      getEnv("JANITOR_SCHEDULE", "@daily"),

		OtelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OtelServiceName: getEnv("OTEL_SERVICE_NAME", "coursehub"),
	}

	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.GatewayWebhookSecret == "" {
		log.Println("Warning: GATEWAY_WEBHOOK_SECRET is empty. Every webhook will be rejected.")
	}
}

// defaultRateLimitMode enforces limits only in production.
func defaultRateLimitMode() string {
	if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		return "LIVE"
	}
	return "DRY_RUN"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to bool: %v", key, err)
		return defaultValue
	}
	return boolValue
}

// getEnvDuration accepts Go duration strings ("10s", "2m").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return d
}
