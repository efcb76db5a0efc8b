package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port               string
	ReadTimeoutSecs    int
	WriteTimeoutSecs   int
	IdleTimeoutSecs    int
	StoreBackend       string
	ProjectID          string
	CredentialsFile    string
	EntityCollection   string
	StorageBucket      string
	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiModel        string
	SummaryTimeoutSecs int
}

// Load reads configuration from the environment, applying defaults and
// validation. A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("PORT", "8080"),
		ReadTimeoutSecs:    getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:   getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:    getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		StoreBackend:       getEnv("STORE_BACKEND", BackendFirestore),
		ProjectID:          os.Getenv("GOOGLE_CLOUD_PROJECT"),
		CredentialsFile:    os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		EntityCollection:   getEnv("ENTITY_COLLECTION", "entities"),
		StorageBucket:      os.Getenv("STORAGE_BUCKET"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		GeminiModel:        os.Getenv("GEMINI_MODEL"),
		SummaryTimeoutSecs: getEnvInt("SUMMARY_TIMEOUT_SECS", 20),
	}

	switch cfg.StoreBackend {
	case BackendFirestore:
		if cfg.ProjectID == "" {
			return Config{}, fmt.Errorf("GOOGLE_CLOUD_PROJECT is required with the firestore backend")
		}
	case BackendMemory:
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be %q or %q", BackendFirestore, BackendMemory)
	}

	if cfg.EntityCollection == "" {
		return Config{}, fmt.Errorf("ENTITY_COLLECTION cannot be empty")
	}
	if cfg.SummaryTimeoutSecs <= 0 {
		return Config{}, fmt.Errorf("SUMMARY_TIMEOUT_SECS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}
