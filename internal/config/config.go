package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL     string `yaml:"database_url"`
	ServerPort      string `yaml:"server_port"`
	FrontendURL     string `yaml:"frontend_url"`
	AuthProviderURL string `yaml:"auth_provider_url"`
	AuthServiceKey  string `yaml:"auth_service_key"`
	AuthAnonKey     string `yaml:"auth_anon_key"`
	EnableHSTS      bool   `yaml:"enable_hsts"`
	RedisURL        string `yaml:"redis_url"`
	RabbitMQURL     string `yaml:"rabbitmq_url"`
	ServerDebugMode bool   `yaml:"server_debug_mode"`
	OTELEnabled     bool   `yaml:"otel_enabled"`
	OTELEndpoint    string `yaml:"otel_endpoint"`
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) overlaid
// by environment variables. Missing provider credentials are a fatal startup
// condition for the components that need them, so they are rejected here.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort: "8080",
		RedisURL:   "redis://localhost:6379/0",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.AuthProviderURL = getEnv("AUTH_PROVIDER_URL", cfg.AuthProviderURL)
	cfg.AuthServiceKey = getEnv("AUTH_SERVICE_KEY", cfg.AuthServiceKey)
	cfg.AuthAnonKey = getEnv("AUTH_ANON_KEY", cfg.AuthAnonKey)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AuthProviderURL == "" {
		return nil, fmt.Errorf("AUTH_PROVIDER_URL is required")
	}
	if cfg.AuthAnonKey == "" {
		return nil, fmt.Errorf("AUTH_ANON_KEY is required")
	}
	if cfg.AuthServiceKey == "" {
		return nil, fmt.Errorf("AUTH_SERVICE_KEY is required (admin operations need the privileged key)")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for the provisioning audit stream")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
