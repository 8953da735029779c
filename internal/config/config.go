package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName            = "WalletLedger"
	defaultAppEnv             = "development"
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultBackend            = BackendPostgres
	defaultSQLitePath         = "wallet_ledger.db"
	defaultShutdownDelay      = 10 * time.Second
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultOperationTimeout   = 5 * time.Second
	defaultRateLimitPerMinute = 60
	idemTTLSecondsEnvVar      = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar          = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar     = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar    = "SHUTDOWN_TIMEOUT"
	operationTimeoutEnvVar    = "OPERATION_TIMEOUT"
)

// Ledger storage backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	LedgerBackend       string
	DatabaseURL         string
	AutoMigrate         bool
	SQLitePath          string
	RedisURL            string
	JWTSecret           string
	JWTIssuer           string
	JWTAudience         string
	OperationTimeout    time.Duration
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	IdempotencyRequired bool
	CORSOrigins         string
	RateLimitPerMinute  int
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment take precedence over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv populates a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LedgerBackend:      strings.ToLower(getEnv("LEDGER_BACKEND", defaultBackend)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", defaultSQLitePath),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          os.Getenv("JWT_ISSUER"),
		JWTAudience:        os.Getenv("JWT_AUDIENCE"),
		CORSOrigins:        getEnv("CORS_ORIGINS", "*"),
		OperationTimeout:   defaultOperationTimeout,
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		RateLimitPerMinute: defaultRateLimitPerMinute,
	}

	var err error
	if cfg.AutoMigrate, err = getBool("DB_AUTO_MIGRATE", false); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyRequired, err = getBool("IDEMPOTENCY_REQUIRED", false); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %q", v)
		}
		cfg.RateLimitPerMinute = n
	}

	if cfg.ShutdownPeriod, err = getDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.OperationTimeout, err = getDuration("", operationTimeoutEnvVar, cfg.OperationTimeout); err != nil {
		return Config{}, err
	}
	if cfg.OperationTimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", operationTimeoutEnvVar)
	}

	switch cfg.LedgerBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when LEDGER_BACKEND=%s", BackendPostgres)
		}
	case BackendSQLite, BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getDuration prefers the whole-seconds variable when set, then the Go
// duration variable.
func getDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}
