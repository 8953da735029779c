package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows browser clients from origins, a comma separated list or "*".
func CORS(origins string) fiber.Handler {
	origins = strings.TrimSpace(origins)
	if origins == "" {
		origins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  strings.Join([]string{fiber.HeaderAuthorization, fiber.HeaderContentType, idempotencyKeyHeader, requestIDHeader}, ","),
		ExposeHeaders: strings.Join([]string{requestIDHeader, fiber.HeaderRetryAfter}, ","),
		MaxAge:        600,
	})
}
