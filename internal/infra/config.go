package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents studio configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	BackendBaseURL   string
	BackendAPIToken  string
	HistoryDBPath    string
	UploadDir        string
	DefaultLocale    string
	AllowedOrigins   []string
	BackendTimeout   time.Duration
	TaskPollInterval time.Duration
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8787"),
		BackendBaseURL:   getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
		BackendAPIToken:  os.Getenv("BACKEND_API_TOKEN"),
		HistoryDBPath:    getEnv("HISTORY_DB_PATH", "./data/studio.db"),
		UploadDir:        getEnv("UPLOAD_DIR", "./data/uploads"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins:   splitList(os.Getenv("ALLOWED_ORIGINS")),
		BackendTimeout:   time.Second * time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 60)),
		TaskPollInterval: time.Second * time.Duration(getEnvInt("TASK_POLL_INTERVAL_SECONDS", 2)),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.BackendAPIToken == "" {
		return nil, fmt.Errorf("BACKEND_API_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
