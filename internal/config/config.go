package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server Server
	Ledger Ledger
	Data   Data
	Stats  Stats
}

// Server holds web server settings
type Server struct {
	Port    string
	GinMode string
}

// Ledger holds artifact storage settings
type Ledger struct {
	Path string
}

// Data holds data source settings
type Data struct {
	File string // xlsx or csv dataset; empty means synthetic data
	Seed int64
}

// Stats holds numeric settings for the analysis pipeline
type Stats struct {
	Tolerance    float64 // exact-method drift tolerance
	TweediePower float64
}

// Load reads configuration from a .env file (if present) and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// No .env file is fine; system environment still applies
	}

	cfg := &Config{
		Server: Server{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Ledger: Ledger{
			Path: getEnv("LEDGER_PATH", "linklens.db"),
		},
		Data: Data{
			File: getEnv("DATA_FILE", ""),
		},
	}

	seed, err := getInt64("DATA_SEED", 42)
	if err != nil {
		return nil, err
	}
	cfg.Data.Seed = seed

	tolerance, err := getFloat("RECONSTRUCT_TOLERANCE", 1e-8)
	if err != nil {
		return nil, err
	}
	cfg.Stats.Tolerance = tolerance

	power, err := getFloat("TWEEDIE_POWER", 1.5)
	if err != nil {
		return nil, err
	}
	cfg.Stats.TweediePower = power

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
