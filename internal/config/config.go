package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	LocalStoreSQLite = "sqlite"
	LocalStoreDisk   = "disk"
)

type Config struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string
	Port         string
	BaseURL      string

	SessionSecret    string
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	LocalStore     string
	LocalStorePath string

	UseFirestore            bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURL   string
	CalendarID          string
	CalendarRefreshCron string

	AIToken    string
	AIEndpoint string
	AIModel    string
	AIUseProxy bool
	AIProxyURL string

	// AIProxyToken is sent as a bearer token when calling the proxy.
	AIProxyToken string

	DefaultCity string
}

func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Config{
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/command-center.db"),
		LogLevel:     envOrDefault("LOG_LEVEL", "info"),
		LogFormat:    envOrDefault("LOG_FORMAT", "json"),
		Port:         envOrDefault("PORT", "8080"),
		BaseURL:      envOrDefault("BASE_URL", "http://localhost:8080"),

		SessionSecret:    os.Getenv("SESSION_SECRET"),
		OIDCIssuer:       os.Getenv("OIDC_ISSUER"),
		OIDCClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),

		LocalStore:     envOrDefault("LOCAL_STORE", LocalStoreSQLite),
		LocalStorePath: envOrDefault("LOCAL_STORE_PATH", "./data/local"),

		UseFirestore:            envBool("USE_FIRESTORE", false),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),

		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:   os.Getenv("GOOGLE_REDIRECT_URL"),
		CalendarID:          envOrDefault("CALENDAR_ID", "primary"),
		CalendarRefreshCron: envOrDefault("CALENDAR_REFRESH_CRON", "*/15 * * * *"),

		AIToken:      os.Getenv("AI_TOKEN"),
		AIEndpoint:   envOrDefault("AI_ENDPOINT", "https://models.inference.ai.azure.com"),
		AIModel:      envOrDefault("AI_MODEL", "gpt-4o-mini"),
		AIUseProxy:   envBool("AI_USE_PROXY", false),
		AIProxyURL:   os.Getenv("AI_PROXY_URL"),
		AIProxyToken: os.Getenv("AI_PROXY_TOKEN"),

		DefaultCity: envOrDefault("DEFAULT_CITY", "Minneapolis"),
	}

	if config.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}

	switch config.LocalStore {
	case LocalStoreSQLite, LocalStoreDisk:
	default:
		return Config{}, fmt.Errorf("LOCAL_STORE must be %q or %q, got %q", LocalStoreSQLite, LocalStoreDisk, config.LocalStore)
	}

	return config, nil
}

// FirestoreConfigured reports whether the document store has a usable project.
func (config Config) FirestoreConfigured() bool {
	return IsSet(config.FirebaseProjectID)
}

func (config Config) CalendarConfigured() bool {
	return IsSet(config.GoogleClientID) && IsSet(config.GoogleClientSecret)
}

// AIConfigured mirrors the credential check of the completion client: the
// proxy holds its own token, so only the URL matters in proxy mode.
func (config Config) AIConfigured() bool {
	if config.AIUseProxy {
		return IsSet(config.AIProxyURL)
	}
	return IsSet(config.AIToken)
}

// IsSet treats empty values and unfilled template placeholders as missing.
func IsSet(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if strings.HasPrefix(value, "YOUR_") || strings.Contains(value, "${{") {
		return false
	}
	return true
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
