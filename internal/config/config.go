package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings read from the environment.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// DatabaseURL selects PostgreSQL storage. Empty means in-memory storage.
	DatabaseURL string

	// RedisAddr enables the seller cache and event streams. Empty disables both.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SellerCacheTTL time.Duration
	StreamMaxLen   int64

	ShutdownTimeout time.Duration

	// DotEnvLoaded reports whether a .env file was read.
	DotEnvLoaded bool
}

// Load reads the given .env files (".env" when none are given) into the
// environment and builds a Config. Missing files are not an error.
func Load(files ...string) *Config {
	loaded := godotenv.Load(files...) == nil

	return &Config{
		Port:            getEnv("PORT", "8081"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),
		SellerCacheTTL:  getDuration("SELLER_CACHE_TTL", 5*time.Minute),
		StreamMaxLen:    int64(getInt("STREAM_MAX_LEN", 10000)),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		DotEnvLoaded:    loaded,
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
