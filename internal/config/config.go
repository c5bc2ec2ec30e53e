package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	OpsAPIKey      string

	DatabaseURL string
	RedisAddr   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	SMSEnabled    bool
	SMSGatewayURL string
	SMSAPIKey     string
	SMSSender     string

	PushRelayURL string
	PushAPIKey   string

	// ProcessSpec is the cron spec for the due-reminder processor.
	ProcessSpec string
	// RunRecoveryScan runs the backfill once at startup.
	RunRecoveryScan bool

	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		OpsAPIKey:      os.Getenv("OPS_API_KEY"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: getEnv("SMTP_FROM", "no-reply@bayarin.app"),

		SMSEnabled:    getEnv("SMS_ENABLED", "false") == "true",
		SMSGatewayURL: getEnv("SMS_GATEWAY_URL", "http://localhost:9090"),
		SMSAPIKey:     os.Getenv("SMS_API_KEY"),
		SMSSender:     getEnv("SMS_SENDER", "BAYARIN"),

		PushRelayURL: getEnv("PUSH_RELAY_URL", "http://localhost:9091"),
		PushAPIKey:   os.Getenv("PUSH_API_KEY"),

		ProcessSpec:     getEnv("PROCESS_CRON", "0 * * * *"),
		RunRecoveryScan: getEnv("RUN_RECOVERY_SCAN", "false") == "true",
	}

	var err error
	cfg.SMTPPort, err = parseInt(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.ShutdownTimeout, err = time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	if cfg.AppEnv != "development" && cfg.OpsAPIKey == "" {
		return nil, fmt.Errorf("OPS_API_KEY is required outside development")
	}
	if cfg.OpsAPIKey == "" {
		cfg.OpsAPIKey = "dev-ops-key"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseInt(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
