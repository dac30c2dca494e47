package config

import (
	"log"
	"os"
	"strconv"
)

const (
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultEnv           = "development"
	defaultPublicBaseURL = "http://localhost:8080"

	// Depósito NERIN, Villa Ortúzar, Buenos Aires.
	defaultBaseLat = -34.5790
	defaultBaseLng = -58.4690
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DBPath        string
	Port          string
	Env           string
	PublicBaseURL string

	// Base coordinate used by the zone resolver. Injected so the same
	// binary can serve another branch without a code change.
	BaseLat float64
	BaseLng float64
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	cfg := Config{
		DBPath:        os.Getenv("DB_PATH"),
		Port:          os.Getenv("PORT"),
		Env:           os.Getenv("APP_ENV"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),
		BaseLat:       envFloat("BASE_LAT", defaultBaseLat),
		BaseLng:       envFloat("BASE_LNG", defaultBaseLng),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.Env == "" {
		cfg.Env = defaultEnv
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = defaultPublicBaseURL
	}

	return cfg
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool {
	return c.Env == defaultEnv
}

func envFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("warning: %s=%q is not numeric, using default", key, raw)
		return def
	}
	return value
}
