// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins []string
	JWTSecret      string

	RedisURL string // empty disables the read cache
	CacheTTL time.Duration

	KafkaBrokers []string // empty logs events instead of publishing them
	KafkaTopic   string

	ReceptionSessionTTL time.Duration

	// OperatorID identifies the technician the CLI acts as.
	OperatorID uuid.UUID
}

// Load reads the optional .env file and the environment. It fails only when
// DATABASE_URL is missing or a value cannot be parsed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "")),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		KafkaBrokers:   splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "reception-events"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	var err error
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReceptionSessionTTL, err = getEnvDuration("RECEPTION_SESSION_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if raw := getEnv("OPERATOR_ID", ""); raw != "" {
		if cfg.OperatorID, err = uuid.Parse(raw); err != nil {
			return nil, fmt.Errorf("OPERATOR_ID: %w", err)
		}
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
