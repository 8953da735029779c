package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/paydemo/wallet_ledger/internal/config"
	"github.com/paydemo/wallet_ledger/internal/identity"
	"github.com/paydemo/wallet_ledger/internal/ledger"
	"github.com/paydemo/wallet_ledger/internal/middleware"
	"github.com/paydemo/wallet_ledger/internal/notification"
	"github.com/paydemo/wallet_ledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Store    ledger.Store
	Cache    *redis.Client
	Logger   *slog.Logger
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Store == nil {
		return fmt.Errorf("ledger store is required")
	}
	if d.Cfg.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	// Outside of dev, replayable retries depend on Redis.
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.CORS(d.Cfg.CORSOrigins))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	walletSvc := wallet.NewService(d.Store, d.Notifier, d.Logger, d.Cfg.OperationTimeout)
	walletHandler := wallet.NewHandler(walletSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Protected routes
	verifier := identity.NewVerifier(d.Cfg.JWTSecret, d.Cfg.JWTIssuer, d.Cfg.JWTAudience)
	protected := api.Group("", middleware.Auth(verifier))

	mutations := []fiber.Handler{middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute, d.Logger)}
	if d.Cache != nil {
		mutations = append(mutations, middleware.Idempotency(middleware.IdempotencyConfig{
			Cache:    d.Cache,
			TTL:      d.Cfg.IdempotencyTTL,
			Required: d.Cfg.IdempotencyRequired,
			Logger:   d.Logger,
		}))
	} else if d.Cfg.IdempotencyRequired {
		return fmt.Errorf("IDEMPOTENCY_REQUIRED needs REDIS_URL")
	}
	RegisterWalletRoutes(protected, walletHandler, mutations...)

	return nil
}
