package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	MongoDatabase  string
	JWTSecret      string
	TokenTTL       time.Duration
	UserCacheTTL   time.Duration
	PageSize       int
	AuthRequired   bool
	DemoMode       bool
	AllowedOrigins []string
}

// Load reads .env when present, then the environment. It exits on invalid
// configuration.
func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// FromEnv builds the configuration from the process environment.
func FromEnv() (Config, error) {
	var err error
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "pocketbook"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 168*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.UserCacheTTL, err = getDuration("USER_CACHE_TTL", time.Minute); err != nil {
		return cfg, err
	}
	if cfg.PageSize, err = getInt("PAGE_SIZE", 10); err != nil {
		return cfg, err
	}
	if cfg.PageSize < 0 {
		return cfg, fmt.Errorf("PAGE_SIZE must not be negative, got %d", cfg.PageSize)
	}
	if cfg.AuthRequired, err = getBool("AUTH_REQUIRED", true); err != nil {
		return cfg, err
	}
	if cfg.DemoMode, err = getBool("DEMO_MODE", false); err != nil {
		return cfg, err
	}
	cfg.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	if cfg.AuthRequired && cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required when AUTH_REQUIRED is true")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
