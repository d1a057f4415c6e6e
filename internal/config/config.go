package config

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// UserID identifies the account this sync daemon serves. Authentication
	// happens upstream; the engine trusts this identity.
	UserID uuid.UUID

	// Storage signing
	StorageBaseURL string
	StorageSecret  string

	// IngestDebounce is the window used to coalesce realtime message
	// notifications into one batched fetch.
	IngestDebounce time.Duration
	// DirectoryDebounce is the looser window for session-list refreshes.
	DirectoryDebounce time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getEnv("SQLITE_PATH", "chatsync.db"),
		RedisURL:          os.Getenv("REDIS_URL"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:9000"),
		StorageSecret:     os.Getenv("STORAGE_SIGNING_SECRET"),
		IngestDebounce:    getEnvDuration("INGEST_DEBOUNCE_MS", 300*time.Millisecond),
		DirectoryDebounce: getEnvDuration("DIRECTORY_DEBOUNCE_MS", 1000*time.Millisecond),
	}

	if raw := os.Getenv("CHAT_USER_ID"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			panic("CHAT_USER_ID is not a valid UUID")
		}
		cfg.UserID = id
	}

	// In production, require the backing services and a real identity
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.StorageSecret == "" {
			panic("STORAGE_SIGNING_SECRET is required in production")
		}
		if cfg.UserID == uuid.Nil {
			panic("CHAT_USER_ID is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
