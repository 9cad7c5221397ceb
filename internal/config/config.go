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
	ServerPort     string
	DatabaseType   string // sqlite (default), postgres, mysql
	DatabasePath   string // sqlite only
	DatabaseURL    string // postgres/mysql only
	MigrationsPath string

	SessionDuration time.Duration
	JWTSecret       string

	// Admin access. AdminOrgName is the organization-name challenge shown
	// before the admin login form; it is a cosmetic gate, not the auth
	// boundary.
	AdminOrgName      string
	AdminPasswordHash string

	// Celebration display window for the goal-completion effect
	CelebrationTTL time.Duration

	// AWS SES email notifications
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	NotifyEmail  string
	AppBaseURL   string

	// OAuth providers for organizations tagged google/facebook. Admin
	// sign-in through a provider is limited to the listed emails.
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	OAuthRedirectBaseURL string
	AdminEmails          []string

	Debug bool
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is honored when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./readrise.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		SessionDuration: getDurationEnv("SESSION_DURATION", 24*time.Hour),
		JWTSecret:       getEnv("JWT_SECRET", ""),

		AdminOrgName:      getEnv("ADMIN_ORG_NAME", "Read & Rise"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		CelebrationTTL: getDurationEnv("CELEBRATION_TTL", 3500*time.Millisecond),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Read & Rise"),
		NotifyEmail:  getEnv("NOTIFY_EMAIL", ""),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		FacebookClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
		FacebookClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),
		AdminEmails:          getListEnv("ADMIN_EMAILS"),

		Debug: getBoolEnv("DEBUG", false),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a duration environment variable or returns a default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s: %v, using default", key, err)
		return defaultValue
	}
	return d
}

// getListEnv reads a comma-separated environment variable into a slice
func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// getBoolEnv reads a boolean environment variable or returns a default
func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
