package wallet

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paydemo/wallet_ledger/internal/identity"
	"github.com/paydemo/wallet_ledger/internal/ledger"
	"github.com/paydemo/wallet_ledger/internal/logging"
)

// newTestApp mounts the handler behind a stand-in for the auth middleware
// that trusts the X-User header.
func newTestApp(t *testing.T, store ledger.Store) *fiber.App {
	t.Helper()
	h := NewHandler(NewService(store, nil, logging.Discard(), time.Second))
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user := c.Get("X-User"); user != "" {
			c.SetUserContext(identity.WithContext(c.UserContext(), identity.Identity{UserID: user}))
		}
		return c.Next()
	})
	app.Get("/wallet", h.Get)
	app.Post("/wallet/deposit", h.Deposit)
	app.Post("/wallet/withdraw", h.Withdraw)
	app.Get("/wallet/transactions", h.Transactions)
	app.Get("/wallet/audit", h.Audit)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, user, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp.StatusCode, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHandlerDepositWithdrawFlow(t *testing.T) {
	app := newTestApp(t, ledger.NewInMemory())

	status, body := do(t, app, fiber.MethodGet, "/wallet", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "0.00", body["balance"])
	assert.Equal(t, "USD", body["currency"])

	status, body = do(t, app, fiber.MethodPost, "/wallet/deposit", "alice", `{"amount":"100.00"}`)
	require.Equal(t, fiber.StatusCreated, status)
	wallet := body["wallet"].(map[string]any)
	assert.Equal(t, "100.00", wallet["balance"])
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "deposit", tx["type"])
	assert.Equal(t, float64(10_000), tx["amount_minor"])

	status, body = do(t, app, fiber.MethodPost, "/wallet/withdraw", "alice", `{"amount":12.5}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "87.50", body["wallet"].(map[string]any)["balance"])

	status, body = do(t, app, fiber.MethodGet, "/wallet/transactions", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	txs := body["transactions"].([]any)
	require.Len(t, txs, 2)
	assert.Equal(t, "withdraw", txs[0].(map[string]any)["type"])
	assert.Equal(t, "12.50", txs[0].(map[string]any)["amount"])

	status, body = do(t, app, fiber.MethodGet, "/wallet/transactions?limit=1&offset=1", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	txs = body["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, "deposit", txs[0].(map[string]any)["type"])

	status, body = do(t, app, fiber.MethodGet, "/wallet/audit", "alice", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["consistent"])
	assert.Equal(t, "87.50", body["ledger_sum"])
}

func TestHandlerErrorMapping(t *testing.T) {
	app := newTestApp(t, ledger.NewInMemory())

	status, body := do(t, app, fiber.MethodGet, "/wallet", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", errorCode(body))

	for _, payload := range []string{`{"amount":"-1"}`, `{"amount":"1.001"}`, `{"amount":null}`, `{}`, `not json`, `{"amount":true}`, `{"amount":1e99999999}`, `{"amount":"1e-99999999"}`} {
		status, body = do(t, app, fiber.MethodPost, "/wallet/deposit", "alice", payload)
		assert.Equal(t, fiber.StatusBadRequest, status, payload)
		assert.Equal(t, "invalid_amount", errorCode(body), payload)
	}

	status, body = do(t, app, fiber.MethodPost, "/wallet/withdraw", "alice", `{"amount":"5"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "insufficient_funds", errorCode(body))
}

func TestHandlerStoreUnavailable(t *testing.T) {
	app := newTestApp(t, brokenStore{})

	req := httptest.NewRequest(fiber.MethodPost, "/wallet/deposit", strings.NewReader(`{"amount":"1"}`))
	req.Header.Set("X-User", "alice")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		`{"amount":"12.50"}`: "12.50",
		`{"amount":12.5}`:    "12.5",
		`{"amount":1e2}`:     "1e2",
		`{"amount":null}`:    "",
		`{}`:                 "",
		`[]`:                 "",
	}
	for body, want := range cases {
		assert.Equal(t, want, parseAmount([]byte(body)), body)
	}
}
