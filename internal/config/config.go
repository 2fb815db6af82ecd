// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process
// exits before touching the network.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all runtime configuration for the search service.
type Config struct {
	Port        string
	StoreDriver string // "postgres" or "sqlite"
	DatabaseURL string // required when StoreDriver is postgres
	SQLitePath  string // used when StoreDriver is sqlite
	RedisURL    string // empty disables event publishing

	DefaultCity     string
	DefaultRadiusKM float64

	MaxListingsPerSource int
	MaxConcurrentScrapes int
	ScrapeDelayMinS      int
	ScrapeDelayMaxS      int
	ProviderTimeoutS     int

	VendeTuNaveBin      string // empty disables the provider
	VendeTuNaveTimeoutS int

	RescoreIntervalHours int // 0 disables the sweep
	CitiesFile           string
}

// Load reads environment variables (merging a .env file when one exists)
// and returns a validated Config.
func Load() (*Config, error) {
	// Best effort: running without a .env file is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		StoreDriver: getEnv("STORE_DRIVER", DriverPostgres),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "carscan.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		DefaultCity: getEnv("DEFAULT_CITY", "Medellín"),

		VendeTuNaveBin: os.Getenv("VENDETUNAVE_BIN"),
		CitiesFile:     os.Getenv("CITIES_FILE"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.StoreDriver)
	}

	var err error
	if cfg.DefaultRadiusKM, err = floatEnv("DEFAULT_RADIUS_KM", 50); err != nil {
		return nil, err
	}
	if cfg.MaxListingsPerSource, err = intEnv("MAX_LISTINGS_PER_SOURCE", 20); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentScrapes, err = intEnv("MAX_CONCURRENT_SCRAPERS", 2); err != nil {
		return nil, err
	}
	if cfg.ScrapeDelayMinS, err = intEnv("SCRAPE_DELAY_MIN_S", 2); err != nil {
		return nil, err
	}
	if cfg.ScrapeDelayMaxS, err = intEnv("SCRAPE_DELAY_MAX_S", 5); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeoutS, err = intEnv("PROVIDER_TIMEOUT_S", 30); err != nil {
		return nil, err
	}
	if cfg.VendeTuNaveTimeoutS, err = intEnv("VENDETUNAVE_TIMEOUT_S", 60); err != nil {
		return nil, err
	}
	if cfg.RescoreIntervalHours, err = intEnv("RESCORE_INTERVAL_H", 6); err != nil {
		return nil, err
	}

	if cfg.ScrapeDelayMaxS < cfg.ScrapeDelayMinS {
		return nil, fmt.Errorf("SCRAPE_DELAY_MAX_S (%d) must not be below SCRAPE_DELAY_MIN_S (%d)",
			cfg.ScrapeDelayMaxS, cfg.ScrapeDelayMinS)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}
	return v, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", key, s)
	}
	return v, nil
}
