package config_test

import (
	"reflect"
	"testing"
	"time"

	"pocketbook-server/src/config"
)

var keys = []string{
	"PORT", "DATABASE_URL", "MONGO_DATABASE", "JWT_SECRET", "TOKEN_TTL", "USER_CACHE_TTL",
	"PAGE_SIZE", "AUTH_REQUIRED", "DEMO_MODE", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "sqlite3://pocketbook.db")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %q", cfg.Port)
	}
	if cfg.MongoDatabase != "pocketbook" {
		t.Errorf("Expected mongo database pocketbook, got %q", cfg.MongoDatabase)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("Expected any origin, got %v", cfg.AllowedOrigins)
	}
	if cfg.TokenTTL != 168*time.Hour {
		t.Errorf("Expected 168h token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.UserCacheTTL != time.Minute {
		t.Errorf("Expected 1m cache ttl, got %v", cfg.UserCacheTTL)
	}
	if cfg.PageSize != 10 {
		t.Errorf("Expected page size 10, got %d", cfg.PageSize)
	}
	if !cfg.AuthRequired || cfg.DemoMode {
		t.Errorf("Expected auth on and demo off, got %v / %v", cfg.AuthRequired, cfg.DemoMode)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/pocketbook")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("PAGE_SIZE", "0")
	t.Setenv("AUTH_REQUIRED", "false")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Errorf("Expected 2h, got %v", cfg.TokenTTL)
	}
	if cfg.PageSize != 0 {
		t.Errorf("Expected pagination disabled, got %d", cfg.PageSize)
	}
	if cfg.AuthRequired || !cfg.DemoMode {
		t.Errorf("Expected auth off and demo on, got %v / %v", cfg.AuthRequired, cfg.DemoMode)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, expected) {
		t.Errorf("Expected %v, got %v", expected, cfg.AllowedOrigins)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing database", map[string]string{"JWT_SECRET": "s"}},
		{"missing secret", map[string]string{"DATABASE_URL": "sqlite3://x.db"}},
		{"bad page size", map[string]string{"DATABASE_URL": "sqlite3://x.db", "JWT_SECRET": "s", "PAGE_SIZE": "ten"}},
		{"negative page size", map[string]string{"DATABASE_URL": "sqlite3://x.db", "JWT_SECRET": "s", "PAGE_SIZE": "-1"}},
		{"bad ttl", map[string]string{"DATABASE_URL": "sqlite3://x.db", "JWT_SECRET": "s", "TOKEN_TTL": "soon"}},
		{"bad bool", map[string]string{"DATABASE_URL": "sqlite3://x.db", "JWT_SECRET": "s", "DEMO_MODE": "maybe"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := config.FromEnv(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
