package config_test

import (
	"testing"
	"time"

	"github.com/iho/cardbank/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StorageBackend != config.BackendMemory {
		t.Fatalf("expected memory backend by default, got %s", cfg.StorageBackend)
	}

	if cfg.CardIIN != "400000" {
		t.Fatalf("expected default IIN 400000, got %s", cfg.CardIIN)
	}

	if cfg.TransferTimeout != 0 {
		t.Fatalf("expected no transfer timeout by default, got %s", cfg.TransferTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("REDIS_LOCK_TTL", "5s")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("ISSUE_MAX_ATTEMPTS", "9")
	t.Setenv("TRANSFER_TIMEOUT", "2s")
	t.Setenv("METRICS_FILE", "/tmp/cardbank.prom")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.StorageBackend != config.BackendRedis {
		t.Fatalf("expected redis backend, got %s", cfg.StorageBackend)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" || cfg.RedisLockTTL != 5*time.Second {
		t.Fatalf("expected redis overrides, got url=%s ttl=%s", cfg.RedisURL, cfg.RedisLockTTL)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.IssueMaxAttempts != 9 || cfg.TransferTimeout != 2*time.Second {
		t.Fatalf("expected card settings, got attempts=%d timeout=%s", cfg.IssueMaxAttempts, cfg.TransferTimeout)
	}

	if cfg.MetricsFile != "/tmp/cardbank.prom" {
		t.Fatalf("expected metrics file override, got %q", cfg.MetricsFile)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"duration", "TRANSFER_TIMEOUT", "not-a-duration"},
		{"backend", "STORAGE_BACKEND", "sqlite"},
		{"attempts", "ISSUE_MAX_ATTEMPTS", "0"},
		{"non numeric iin", "CARD_IIN", "40a000"},
		{"iin too long", "CARD_IIN", "400000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
