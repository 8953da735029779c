package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/paydemo/wallet_ledger/internal/identity"
)

const testSecret = "middleware-secret"

func authApp() *fiber.App {
	app := fiber.New()
	app.Use(Auth(identity.NewVerifier(testSecret, "", "")))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(identity.FromContext(c.UserContext()).UserID)
	})
	return app
}

func TestAuthAcceptsValidToken(t *testing.T) {
	token, err := identity.Sign(testSecret, identity.Identity{UserID: "user-42"}, "", "", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "bearer "+token)

	resp, err := authApp().Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(body) != "user-42" {
		t.Fatalf("expected 200 user-42, got %d %s", resp.StatusCode, body)
	}
}

func TestAuthRejects(t *testing.T) {
	expired, err := identity.Sign(testSecret, identity.Identity{UserID: "user-42"}, "", "", -time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	for name, header := range map[string]string{
		"missing":   "",
		"basic":     "Basic dXNlcjpwYXNz",
		"bare":      "Bearer",
		"malformed": "Bearer abc.def.ghi",
		"expired":   "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set(fiber.HeaderAuthorization, header)
			}
			resp, err := authApp().Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Fatalf("expected 401 got %d", resp.StatusCode)
			}
		})
	}
}
