package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server configuration.
type Config struct {
	Port           string
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseURL    string
	RedisAddr      string // optional premium-index cache
	JWTSecret      string
	OTLPEndpoint   string // optional; empty disables tracing export
	ProfilePath    string // optional district profile to seed zones from
	BlockInterval  time.Duration
	GenesisTime    time.Time
	RateLimitRPS   int
	RateLimitBurst int
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "quietgrid.db"
	}

	interval := 10 * time.Minute
	if raw := os.Getenv("BLOCK_INTERVAL_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}

	genesis := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if raw := os.Getenv("GENESIS_TIME"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			genesis = ts
		}
	}

	rps := envInt("RATE_LIMIT_RPS", 20)
	burst := envInt("RATE_LIMIT_BURST", 40)

	return &Config{
		Port:           port,
		DatabaseDriver: driver,
		DatabaseURL:    dbURL,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OTLPEndpoint:   os.Getenv("OTLP_ENDPOINT"),
		ProfilePath:    os.Getenv("DISTRICT_PROFILE"),
		BlockInterval:  interval,
		GenesisTime:    genesis,
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
