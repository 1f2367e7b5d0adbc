package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	StorageDriver string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	MigrationsDir string
	JWTSecret     string
	APIRateLimit  string // ulule/limiter formatted rate, e.g. "100-M"
	CORSOrigins   []string

	// Bank aggregator
	TellerAPIURL      string
	TellerCertificate string // PEM, optional mTLS client certificate
	TellerPrivateKey  string // PEM, key for TellerCertificate
	TellerTimeout     time.Duration

	// Price feeds
	AlphaVantageAPIKey string
	AlphaVantageURL    string
	YahooBaseURL       string
	PriceRateLimit     string
	PriceCacheTTL      time.Duration
	RedisURL           string

	// Background jobs
	SyncSchedule         string
	PriceRefreshSchedule string
	PriceMaxAge          time.Duration
	SyncLookbackDays     int
	SyncConcurrency      int
	PriceConcurrency     int
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("API_RATE_LIMIT", "300-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	v.SetDefault("TELLER_API_URL", "https://api.teller.io")
	v.SetDefault("TELLER_CERTIFICATE", "")
	v.SetDefault("TELLER_PRIVATE_KEY", "")
	v.SetDefault("TELLER_TIMEOUT", "30s")

	v.SetDefault("ALPHA_VANTAGE_API_KEY", "")
	v.SetDefault("ALPHA_VANTAGE_URL", "https://www.alphavantage.co")
	v.SetDefault("YAHOO_BASE_URL", "https://query1.finance.yahoo.com")
	v.SetDefault("PRICE_RATE_LIMIT", "5-S")
	v.SetDefault("PRICE_CACHE_TTL", "5m")
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("SYNC_SCHEDULE", "0 0 */6 * * *")
	v.SetDefault("PRICE_REFRESH_SCHEDULE", "0 */15 * * * *")
	v.SetDefault("PRICE_MAX_AGE", "1h")
	v.SetDefault("SYNC_LOOKBACK", 30)
	v.SetDefault("SYNC_CONCURRENCY", 4)
	v.SetDefault("PRICE_CONCURRENCY", 4)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:          v.GetString("PGSQL_URL"),
		StorageDriver:        strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
		Port:                 v.GetString("PORT"),
		IsProduction:         v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:        v.GetBool("ENABLE_DB_CHECK"),
		MigrationsDir:        v.GetString("MIGRATIONS_DIR"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		APIRateLimit:         v.GetString("API_RATE_LIMIT"),
		CORSOrigins:          splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		TellerAPIURL:         strings.TrimRight(v.GetString("TELLER_API_URL"), "/"),
		TellerCertificate:    v.GetString("TELLER_CERTIFICATE"),
		TellerPrivateKey:     v.GetString("TELLER_PRIVATE_KEY"),
		TellerTimeout:        v.GetDuration("TELLER_TIMEOUT"),
		AlphaVantageAPIKey:   v.GetString("ALPHA_VANTAGE_API_KEY"),
		AlphaVantageURL:      strings.TrimRight(v.GetString("ALPHA_VANTAGE_URL"), "/"),
		YahooBaseURL:         strings.TrimRight(v.GetString("YAHOO_BASE_URL"), "/"),
		PriceRateLimit:       v.GetString("PRICE_RATE_LIMIT"),
		PriceCacheTTL:        v.GetDuration("PRICE_CACHE_TTL"),
		RedisURL:             v.GetString("REDIS_URL"),
		SyncSchedule:         v.GetString("SYNC_SCHEDULE"),
		PriceRefreshSchedule: v.GetString("PRICE_REFRESH_SCHEDULE"),
		PriceMaxAge:          v.GetDuration("PRICE_MAX_AGE"),
		SyncLookbackDays:     v.GetInt("SYNC_LOOKBACK"),
		SyncConcurrency:      v.GetInt("SYNC_CONCURRENCY"),
		PriceConcurrency:     v.GetInt("PRICE_CONCURRENCY"),
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORAGE_DRIVER is %q", StoragePostgres)
		}
	case StorageMemory:
		log.Println("Warning: STORAGE_DRIVER=memory, nothing will be persisted.")
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = defaultJWTSecret
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	if (cfg.TellerCertificate == "") != (cfg.TellerPrivateKey == "") {
		return nil, fmt.Errorf("TELLER_CERTIFICATE and TELLER_PRIVATE_KEY must be set together")
	}
	if cfg.TellerCertificate == "" {
		log.Println("Warning: TELLER_CERTIFICATE not set. Aggregator requests will not use mutual TLS.")
	}

	if cfg.TellerTimeout <= 0 {
		cfg.TellerTimeout = 30 * time.Second
	}
	if cfg.PriceMaxAge <= 0 {
		cfg.PriceMaxAge = time.Hour
	}
	if cfg.SyncLookbackDays <= 0 {
		cfg.SyncLookbackDays = 30
	}
	if cfg.SyncConcurrency <= 0 {
		cfg.SyncConcurrency = 1
	}
	if cfg.PriceConcurrency <= 0 {
		cfg.PriceConcurrency = 1
	}

	return cfg, nil
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
