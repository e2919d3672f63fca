// Package config provides application-wide configuration loaded from env vars.
// All fields have safe defaults so the binary runs locally without any env setup.
// Runtime settings editable from the admin console (API keys, prompts, branding)
// live in the database instead; see internal/domain/settings.
package config

import "os"

// Config holds process-level configuration for demoplane.
type Config struct {
	Host     string // DEMOPLANE_HOST, default "0.0.0.0"
	Port     string // DEMOPLANE_PORT, default "8080"
	DBPath   string // DEMOPLANE_DB, default "./data/demoplane.db"
	SeedFile string // DEMOPLANE_SEED, optional YAML seed pack ingested at startup
}

const (
	envKeyHost     = "DEMOPLANE_HOST"
	envKeyPort     = "DEMOPLANE_PORT"
	envKeyDBPath   = "DEMOPLANE_DB"
	envKeySeedFile = "DEMOPLANE_SEED"
)

// Load reads configuration from environment variables, applying defaults for missing values.
func Load() Config {
	return Config{
		Host:     envOr(envKeyHost, "0.0.0.0"),
		Port:     envOr(envKeyPort, "8080"),
		DBPath:   envOr(envKeyDBPath, "./data/demoplane.db"),
		SeedFile: os.Getenv(envKeySeedFile),
	}
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
