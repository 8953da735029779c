package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"

	"github.com/paydemo/wallet_ledger/internal/identity"
)

const (
	rateLimitPrefix = "rl:wallet:"
	rateLimitWindow = time.Minute
)

// RateLimit caps requests per caller per minute. With Redis the counter is
// shared across instances; without it Fiber's in-process limiter is used.
// A non-positive perMinute disables limiting.
func RateLimit(cache *redis.Client, perMinute int, logger *slog.Logger) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if cache == nil {
		return limiter.New(limiter.Config{
			Max:          perMinute,
			Expiration:   rateLimitWindow,
			KeyGenerator: rateLimitKey,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
			},
		})
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		window := time.Now().Unix() / int64(rateLimitWindow/time.Second)
		key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, rateLimitKey(c), window)

		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			// fail open on cache errors
			logger.Warn("rate limit check failed", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, rateLimitWindow)
		}
		if cnt > int64(perMinute) {
			retry := rateLimitWindow - time.Duration(time.Now().Unix()%int64(rateLimitWindow/time.Second))*time.Second
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retry.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

// rateLimitKey prefers the authenticated user and falls back to the client IP.
func rateLimitKey(c *fiber.Ctx) string {
	if id := identity.FromContext(c.UserContext()); !id.IsZero() {
		return "user:" + id.UserID
	}
	return "ip:" + c.IP()
}
