package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paydemo/wallet_ledger/internal/identity"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Auth requires a valid bearer token and attaches the caller's identity to
// the request context.
func Auth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		id, err := verifier.Verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.SetUserContext(identity.WithContext(c.UserContext(), id))
		return c.Next()
	}
}
