package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND", "SESSION_IDLE_TIMEOUT", "CORS_ALLOWED_ORIGINS", "LLM_PROVIDER", "NOTIFY_QUEUE", "SEED_DEMO"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected memory store backend, got %s", cfg.StoreBackend)
	}
	if cfg.SessionIdleTimeout != time.Hour {
		t.Fatalf("expected one hour idle timeout, got %s", cfg.SessionIdleTimeout)
	}
	if cfg.SessionContextTurns != 10 {
		t.Fatalf("expected 10 context turns, got %d", cfg.SessionContextTurns)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m token ttl, got %s", cfg.TokenTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected default CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LLMProvider != "stub" {
		t.Fatalf("expected stub llm provider, got %s", cfg.LLMProvider)
	}
	if cfg.AgentMaxIterations != 5 {
		t.Fatalf("expected 5 agent iterations, got %d", cfg.AgentMaxIterations)
	}
	if cfg.NotifyQueue != "memory" {
		t.Fatalf("expected memory notify queue, got %s", cfg.NotifyQueue)
	}
	if !cfg.SeedDemo {
		t.Fatalf("expected demo seeding enabled by default")
	}
	if cfg.ClinicTimezone != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata timezone, got %s", cfg.ClinicTimezone)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", " Redis ")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_IDLE_TIMEOUT", "15m")
	t.Setenv("SESSION_CONTEXT_TURNS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("REDIS_TLS", "true")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.StoreBackend != "redis" {
		t.Fatalf("expected normalized redis backend, got %q", cfg.StoreBackend)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SessionIdleTimeout != 15*time.Minute {
		t.Fatalf("expected idle timeout override, got %s", cfg.SessionIdleTimeout)
	}
	if cfg.SessionContextTurns != 4 {
		t.Fatalf("expected context turns override, got %d", cfg.SessionContextTurns)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
	if cfg.NotifyTimeout != 3*time.Second {
		t.Fatalf("expected notify timeout override, got %s", cfg.NotifyTimeout)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_MAX_TURNS", "lots")
	t.Setenv("TOKEN_TTL", "soon")
	cfg := Load()
	if cfg.SessionMaxTurns != 50 {
		t.Fatalf("expected default max turns, got %d", cfg.SessionMaxTurns)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("expected default token ttl, got %s", cfg.TokenTTL)
	}
}
