package config

import (
	"os"
	"path/filepath"
	"testing"
)

// setRequiredEnv sets the minimum environment for Load to succeed
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("AUTH_PROVIDER_URL", "https://auth.example.com")
	t.Setenv("AUTH_ANON_KEY", "anon")
	t.Setenv("AUTH_SERVICE_KEY", "service")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")
	t.Setenv("CONFIG_FILE", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.ServerPort)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("expected default redis URL, got %s", cfg.RedisURL)
	}
	if cfg.EnableHSTS {
		t.Error("expected HSTS disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ENABLE_HSTS", "true")
	t.Setenv("SERVER_DEBUG_MODE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.ServerPort)
	}
	if !cfg.EnableHSTS {
		t.Error("expected HSTS enabled")
	}
	if !cfg.ServerDebugMode {
		t.Error("expected debug mode enabled")
	}
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{name: "missing database url", unset: "DATABASE_URL"},
		{name: "missing provider url", unset: "AUTH_PROVIDER_URL"},
		{name: "missing anon key", unset: "AUTH_ANON_KEY"},
		{name: "missing service key", unset: "AUTH_SERVICE_KEY"},
		{name: "missing rabbitmq url", unset: "RABBITMQ_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			if _, err := Load(); err == nil {
				t.Errorf("expected error when %s is missing", tt.unset)
			}
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server_port: \"7070\"\nfrontend_url: https://portal.clinic.test\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "7070" {
		t.Errorf("expected port 7070 from the file, got %s", cfg.ServerPort)
	}
	if cfg.FrontendURL != "https://portal.clinic.test" {
		t.Errorf("expected frontend URL from the file, got %s", cfg.FrontendURL)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server_port: \"7070\"\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("expected env to override the file, got %s", cfg.ServerPort)
	}
}
