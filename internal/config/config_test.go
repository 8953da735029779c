package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv unsets every variable FromEnv reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "LEDGER_BACKEND", "DATABASE_URL",
		"DB_AUTO_MIGRATE", "SQLITE_PATH", "REDIS_URL", "JWT_SECRET", "JWT_ISSUER",
		"JWT_AUDIENCE", "CORS_ORIGINS", "RATE_LIMIT_PER_MINUTE", "IDEMPOTENCY_REQUIRED",
		idemTTLSecondsEnvVar, idemTTLDurEnvVar, shutdownSecondsEnvVar, shutdownDurationEnvVar,
		operationTimeoutEnvVar,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/wallet")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LedgerBackend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %s", cfg.LedgerBackend)
	}
	if cfg.OperationTimeout != 5*time.Second {
		t.Fatalf("expected 5s operation timeout, got %s", cfg.OperationTimeout)
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("expected 24h idempotency ttl, got %s", cfg.IdempotencyTTL)
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Fatalf("expected 60 requests per minute, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if !cfg.IsDev() {
		t.Fatalf("expected development env")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_BACKEND", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/ledger.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", ":9000")
	t.Setenv("APP_ENV", "production")
	t.Setenv(shutdownSecondsEnvVar, "3")
	t.Setenv(shutdownDurationEnvVar, "1m")
	t.Setenv(idemTTLDurEnvVar, "90s")
	t.Setenv(operationTimeoutEnvVar, "750ms")
	t.Setenv("IDEMPOTENCY_REQUIRED", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "10")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LedgerBackend != BackendSQLite || cfg.SQLitePath != "/tmp/ledger.db" {
		t.Fatalf("unexpected backend %s at %s", cfg.LedgerBackend, cfg.SQLitePath)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("seconds variable should win, got %s", cfg.ShutdownPeriod)
	}
	if cfg.IdempotencyTTL != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %s", cfg.IdempotencyTTL)
	}
	if cfg.OperationTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms timeout, got %s", cfg.OperationTimeout)
	}
	if !cfg.IdempotencyRequired || cfg.RateLimitPerMinute != 10 {
		t.Fatalf("unexpected http settings: %+v", cfg)
	}
	if cfg.Address() != ":9000" || cfg.IsDev() {
		t.Fatalf("unexpected address/env: %s %s", cfg.Address(), cfg.AppEnv)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url": {"JWT_SECRET": "x"},
		"missing jwt secret":   {"LEDGER_BACKEND": "memory"},
		"unknown backend":      {"LEDGER_BACKEND": "mongo", "JWT_SECRET": "x"},
		"bad timeout":          {"LEDGER_BACKEND": "memory", "JWT_SECRET": "x", operationTimeoutEnvVar: "soon"},
		"zero timeout":         {"LEDGER_BACKEND": "memory", "JWT_SECRET": "x", operationTimeoutEnvVar: "0s"},
		"bad bool":             {"LEDGER_BACKEND": "memory", "JWT_SECRET": "x", "DB_AUTO_MIGRATE": "maybe"},
		"bad rate limit":       {"LEDGER_BACKEND": "memory", "JWT_SECRET": "x", "RATE_LIMIT_PER_MINUTE": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_BACKEND=memory\nJWT_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWTSecret != "from-file" || cfg.LedgerBackend != BackendMemory {
		t.Fatalf("expected values from .env, got %+v", cfg)
	}
}
