package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"college-progress-service/utils"
)

type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigins []string
	ServiceToken   string
	LogMode        string

	ReconcileInterval time.Duration

	CatalogSource string
	R2            utils.R2Config

	ProfileSyncURL      string
	ProfileSyncPath     string
	ProfileSyncToken    string
	ProfileSyncInterval time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		Port:           getEnv("PORT", "5200"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ServiceToken:   getEnv("SERVICE_TOKEN", ""),
		LogMode:        getEnv("LOG_MODE", "dev"),

		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 5*time.Minute),

		CatalogSource: getEnv("CATALOG_SOURCE", "seed/catalog.json"),
		R2: utils.R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
		},

		ProfileSyncURL:      getEnv("PROFILE_SYNC_URL", ""),
		ProfileSyncPath:     getEnv("PROFILE_SYNC_PATH", "/api/v1/public/profiles"),
		ProfileSyncToken:    getEnv("PROFILE_SYNC_TOKEN", ""),
		ProfileSyncInterval: getDuration("PROFILE_SYNC_INTERVAL", time.Minute),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable not set")
	}
	return cfg, nil
}

// CatalogFromBucket reports whether the catalog lives in object storage.
func (c *Config) CatalogFromBucket() bool {
	return strings.HasPrefix(c.CatalogSource, "s3://")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
