package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// GPTConfig holds the YandexGPT completion settings.
type GPTConfig struct {
	BaseURL     string
	FolderID    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// OAuthConfig holds the Yandex OAuth application credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// BootstrapTracker describes a tracker row ensured at startup, so a fresh
// deployment has an organization to bind users to.
type BootstrapTracker struct {
	Name    string
	CloudID string
	OrgID   string
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Addr            string
	DatabasePath    string
	LogDir          string
	TrackerBaseURL  string
	TrackerCacheTTL time.Duration
	Tracker         BootstrapTracker
	OAuth           OAuthConfig
	GPT             GPTConfig
}

// Load loads the configuration from a .env file and environment variables.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	cacheSecs, _ := strconv.Atoi(getEnv("TRACKER_CACHE_TTL_SECONDS", "300"))
	temperature, _ := strconv.ParseFloat(getEnv("YC_GPT_TEMPERATURE", "0.3"), 64)
	maxTokens, _ := strconv.Atoi(getEnv("YC_GPT_MAX_TOKENS", "2000"))

	cfg := &AppConfig{
		Addr:            getEnv("LISTEN_ADDR", ":8008"),
		DatabasePath:    getEnv("DATABASE_PATH", "profiflow.db"),
		LogDir:          getEnv("LOGS_FOLDER", "logs"),
		TrackerBaseURL:  getEnv("TRACKER_BASE_URL", "https://api.tracker.yandex.net"),
		TrackerCacheTTL: time.Duration(cacheSecs) * time.Second,
		Tracker: BootstrapTracker{
			Name:    getEnv("TRACKER_NAME", "Yandex Tracker"),
			CloudID: getEnv("YC_CLOUD_ORG_ID", ""),
			OrgID:   getEnv("TRACKER_ORG_ID", ""),
		},
		OAuth: OAuthConfig{
			ClientID:     getEnv("YANDEX_CLIENT_ID", ""),
			ClientSecret: getEnv("YANDEX_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("YANDEX_REDIRECT_URL", "http://localhost:8008/api/auth/yandex/callback"),
		},
		GPT: GPTConfig{
			BaseURL:     getEnv("YC_GPT_BASE_URL", "https://llm.api.cloud.yandex.net"),
			FolderID:    getEnv("YC_FOLDER_ID", ""),
			APIKey:      getEnv("YC_API_KEY", ""),
			Model:       getEnv("YC_GPT_MODEL", "yandexgpt-lite"),
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
