package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Placeholder values shipped in the sample environment. Startup refuses to
// run against them so a half-configured deployment fails loudly.
const (
	PlaceholderAPIKey  = "your_api_key_here"
	PlaceholderGroupID = "your_group_id_here"
)

// DefaultRateLimitSeconds is the cooldown applied when none is configured.
const DefaultRateLimitSeconds = 5

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	// APIKey is the Sendlix credential in "secret.keyId" form.
	APIKey     string
	GroupID    string
	APIBaseURL string

	RateLimitSeconds int

	// PrivacyPolicyURL, when set, makes privacy consent mandatory.
	PrivacyPolicyURL string

	// EmailValidationEnabled gates subscriptions behind a one-time
	// email-verification challenge.
	EmailValidationEnabled bool
	EmailFrom              string
	TemplatesDir           string

	AllowedOrigins []string // CORS allowed origins

	Workers    int // async pool workers
	QueueDepth int // async pool queue depth
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppPort:                getEnv("APP_PORT", "3000"),
		AppEnv:                 getEnv("APP_ENV", "development"),
		APIKey:                 strings.TrimSpace(getEnv("SENDLIX_API_KEY", PlaceholderAPIKey)),
		GroupID:                strings.TrimSpace(getEnv("SENDLIX_GROUP_ID", PlaceholderGroupID)),
		APIBaseURL:             getEnv("SENDLIX_API_URL", "https://api.sendlix.com"),
		RateLimitSeconds:       getEnvInt("RATE_LIMIT_SECONDS", DefaultRateLimitSeconds),
		PrivacyPolicyURL:       getEnv("PRIVACY_POLICY_URL", ""),
		EmailValidationEnabled: getEnvBool("EMAIL_VALIDATION_ENABLED", false),
		EmailFrom:              getEnv("EMAIL_FROM", ""),
		TemplatesDir:           getEnv("TEMPLATES_DIR", "./templates"),
		AllowedOrigins:         strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		Workers:                getEnvInt("ASYNC_WORKERS", 8),
		QueueDepth:             getEnvInt("ASYNC_QUEUE_DEPTH", 64),
	}

	if cfg.APIKey == "" || cfg.APIKey == PlaceholderAPIKey {
		return nil, fmt.Errorf("SENDLIX_API_KEY must be set to a real API key")
	}
	if cfg.GroupID == "" || cfg.GroupID == PlaceholderGroupID {
		return nil, fmt.Errorf("SENDLIX_GROUP_ID must be set to a real group id")
	}
	if cfg.RateLimitSeconds < 0 {
		cfg.RateLimitSeconds = DefaultRateLimitSeconds
	}
	if cfg.EmailValidationEnabled && cfg.EmailFrom == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required when EMAIL_VALIDATION_ENABLED is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
