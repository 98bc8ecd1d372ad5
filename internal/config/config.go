package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	ServerPort string `validate:"required,numeric"`

	// OpenTelemetry settings
	OTLPEndpoint string `validate:"required"`
	ServiceName  string `validate:"required"`
	Environment  string `validate:"required"`

	// Storage settings
	StorageDriver string `validate:"oneof=memory postgres"`
	DatabaseURL   string `validate:"required_if=StorageDriver postgres"`
	// UsersFile seeds the in-memory user directory.
	UsersFile string

	// JWTSecret verifies access tokens issued by the accounts service.
	JWTSecret string `validate:"required"`

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gte=1"`
}

// Load reads configuration from the environment, after applying a .env file
// in the working directory if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	rps, err := getFloat("RATE_LIMIT_RPS", 50)
	if err != nil {
		return nil, err
	}
	burst, err := getInt("RATE_LIMIT_BURST", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "todo-workflow"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		StorageDriver:  getEnv("STORAGE_DRIVER", StorageMemory),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		UsersFile:      os.Getenv("USERS_FILE"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RateLimitRPS:   rps,
		RateLimitBurst: burst,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
