package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/paydemo/wallet_ledger/internal/identity"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	maxIdempotencyKeyLen = 255
	idempotencyOpTimeout = 2 * time.Second
)

// IdempotencyConfig configures the Idempotency middleware.
type IdempotencyConfig struct {
	Cache *redis.Client
	TTL   time.Duration
	// Required rejects unsafe requests that carry no Idempotency-Key.
	Required bool
	Logger   *slog.Logger
}

type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers"`
	Fingerprint string            `json:"fingerprint"`
}

// Idempotency replays the stored response when an unsafe request is repeated
// with the same Idempotency-Key. Keys are scoped to the authenticated caller.
// Server errors are not stored, so a retry after a 5xx runs again.
func Idempotency(cfg IdempotencyConfig) fiber.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			if cfg.Required {
				return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
			}
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key header too long")
		}

		scope := "anonymous"
		if id := identity.FromContext(c.UserContext()); !id.IsZero() {
			scope = id.UserID
		}
		cacheKey := idempotencyPrefix + scope + ":" + key
		fingerprint := requestFingerprint(c)

		ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		defer cancel()

		cached, err := cfg.Cache.Get(ctx, cacheKey).Result()
		if err == nil {
			return replay(c, logger, key, cached, fingerprint)
		}
		if !errors.Is(err, redis.Nil) {
			logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}

		reserved, err := cfg.Cache.SetNX(ctx, cacheKey, inProgressMarker, cfg.TTL).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
		}

		release := func() {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
			defer cancel()
			cfg.Cache.Del(cleanupCtx, cacheKey) // best effort cleanup
		}

		if err := c.Next(); err != nil {
			release()
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release()
			return nil
		}

		stored := storedResponse{
			Status:      status,
			Body:        string(c.Response().Body()),
			Headers:     map[string]string{},
			Fingerprint: fingerprint,
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			stored.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			release()
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		defer persistCancel()

		if err := cfg.Cache.Set(persistCtx, cacheKey, payload, cfg.TTL).Err(); err != nil {
			// The operation already happened. The in-progress marker stays until
			// its TTL so a retry gets 409 rather than applying the request twice.
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
		}
		return nil
	}
}

func replay(c *fiber.Ctx, logger *slog.Logger, key, cached, fingerprint string) error {
	if cached == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.Fingerprint != fingerprint {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused with a different request")
	}

	for header, value := range stored.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) || strings.EqualFold(header, requestIDHeader) {
			continue
		}
		c.Set(header, value)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func requestFingerprint(c *fiber.Ctx) string {
	h := sha256.New()
	h.Write([]byte(c.Method()))
	h.Write([]byte{0})
	h.Write([]byte(c.Path()))
	h.Write([]byte{0})
	h.Write(c.Body())
	return hex.EncodeToString(h.Sum(nil))
}
