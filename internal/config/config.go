// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding variable is unset or invalid.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultStorageBucket   = "reimbursements"
	DefaultMailAPIURL      = "https://api.resend.com"
	DefaultMailTimeout     = 10 * time.Second
	DefaultMaxUploadBytes  = 10 << 20
	DefaultRateLimitRPS    = 20
	DefaultRateLimitBurst  = 40
	DefaultShutdownTimeout = 15 * time.Second
)

// Config holds all configuration for the application.
type Config struct {
	DatabaseURL   string
	HTTPAddr      string
	PublicBaseURL string
	StaticDir     string
	LogLevel      string
	LogFormat     string

	AuthJWTSecret  string
	AuthJWTIssuer  string
	AllowedOrigins []string
	TrustProxy     bool

	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	MailAPIURL  string
	MailAPIKey  string
	MailFrom    string
	MailTimeout time.Duration

	GeminiAPIKey string

	TelegramBotToken       string
	TelegramTreasuryChatID int64

	RateLimitRPS        float64
	RateLimitBurst      int
	MaxUploadBytes      int64
	InviteSweepInterval time.Duration
	ShutdownTimeout     time.Duration

	OTelExporter string
	OTelEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		HTTPAddr:         envOr("HTTP_ADDR", DefaultHTTPAddr),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		StaticDir:        os.Getenv("STATIC_DIR"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		AuthJWTSecret:    os.Getenv("AUTH_JWT_SECRET"),
		AuthJWTIssuer:    os.Getenv("AUTH_JWT_ISSUER"),
		TrustProxy:       os.Getenv("TRUST_PROXY") == "true",
		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    envOr("STORAGE_BUCKET", DefaultStorageBucket),
		StorageUseSSL:    os.Getenv("STORAGE_USE_SSL") != "false",
		MailAPIURL:       envOr("MAIL_API_URL", DefaultMailAPIURL),
		MailAPIKey:       os.Getenv("MAIL_API_KEY"),
		MailFrom:         envOr("MAIL_FROM", "Tally <treasury@tally.local>"),
		MailTimeout:      durationOr("MAIL_TIMEOUT", DefaultMailTimeout),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RateLimitRPS:     DefaultRateLimitRPS,
		RateLimitBurst:   DefaultRateLimitBurst,
		MaxUploadBytes:   DefaultMaxUploadBytes,
		ShutdownTimeout:  durationOr("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		OTelExporter:     envOr("OTEL_EXPORTER", "none"),
		OTelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if idStr := os.Getenv("TELEGRAM_TREASURY_CHAT_ID"); idStr != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64); err == nil {
			cfg.TelegramTreasuryChatID = id
		}
	}
	if rpsStr := os.Getenv("RATE_LIMIT_RPS"); rpsStr != "" {
		if rps, err := strconv.ParseFloat(rpsStr, 64); err == nil && rps > 0 {
			cfg.RateLimitRPS = rps
		}
	}
	if burstStr := os.Getenv("RATE_LIMIT_BURST"); burstStr != "" {
		if burst, err := strconv.Atoi(burstStr); err == nil && burst > 0 {
			cfg.RateLimitBurst = burst
		}
	}
	if maxStr := os.Getenv("MAX_UPLOAD_BYTES"); maxStr != "" {
		if maxBytes, err := strconv.ParseInt(maxStr, 10, 64); err == nil && maxBytes > 0 {
			cfg.MaxUploadBytes = maxBytes
		}
	}
	cfg.InviteSweepInterval = durationOr("INVITE_SWEEP_INTERVAL", 0)

	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		for origin := range strings.SplitSeq(originsStr, ",") {
			origin = strings.TrimSpace(origin)
			if origin == "" {
				continue
			}
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, strings.TrimRight(origin, "/"))
		}
	}

	// Validate required configuration.
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.AuthJWTSecret == "" {
		errs = append(errs, "AUTH_JWT_SECRET is required")
	}

	if c.StorageEndpoint != "" && (c.StorageAccessKey == "" || c.StorageSecretKey == "") {
		errs = append(errs, "STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_ENDPOINT is set")
	}

	if (c.TelegramBotToken == "") != (c.TelegramTreasuryChatID == 0) {
		errs = append(errs, "TELEGRAM_BOT_TOKEN and TELEGRAM_TREASURY_CHAT_ID must be set together")
	}

	switch c.OTelExporter {
	case "none", "stdout", "otlp-grpc", "otlp-http":
	default:
		errs = append(errs, fmt.Sprintf("OTEL_EXPORTER %q is not one of none, stdout, otlp-grpc, otlp-http", c.OTelExporter))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// StorageEnabled reports whether an object store is configured.
func (c *Config) StorageEnabled() bool {
	return c.StorageEndpoint != ""
}

// NotificationsEnabled reports whether treasury chat notifications are configured.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramTreasuryChatID != 0
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
