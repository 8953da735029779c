package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/paydemo/wallet_ledger/internal/identity"
	"github.com/paydemo/wallet_ledger/internal/ledger"
	"github.com/paydemo/wallet_ledger/internal/money"
)

// retryAfterSeconds is advertised when the store is unavailable.
const retryAfterSeconds = "1"

// Handler exposes wallet HTTP endpoints for the authenticated caller.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

type walletResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Balance      string    `json:"balance"`
	BalanceMinor int64     `json:"balance_minor"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID                string    `json:"id"`
	WalletID          string    `json:"wallet_id"`
	Type              string    `json:"type"`
	Amount            string    `json:"amount"`
	AmountMinor       int64     `json:"amount_minor"`
	BalanceAfter      string    `json:"balance_after"`
	BalanceAfterMinor int64     `json:"balance_after_minor"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

type receiptResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Wallet      walletResponse      `json:"wallet"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Get returns the caller's wallet, creating it on first use.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.GetOrCreateWallet(c.UserContext(), identity.FromContext(c.UserContext()))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(w))
}

// Deposit credits the caller's wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.apply(c, h.service.Deposit)
}

// Withdraw debits the caller's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.apply(c, h.service.Withdraw)
}

type entryFunc func(ctx context.Context, id identity.Identity, amount string) (Receipt, error)

func (h *Handler) apply(c *fiber.Ctx, op entryFunc) error {
	receipt, err := op(c.UserContext(), identity.FromContext(c.UserContext()), parseAmount(c.Body()))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(receiptResponse{
		Transaction: toTransactionResponse(receipt.Transaction),
		Wallet:      toWalletResponse(receipt.Wallet),
	})
}

// Transactions lists the caller's transactions, newest first. limit and
// offset query parameters page through the history; no limit returns all.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	opts := ledger.ListOptions{
		Limit:  max(c.QueryInt("limit", 0), 0),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
	txs, err := h.service.ListTransactions(c.UserContext(), identity.FromContext(c.UserContext()), opts)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": out,
		"limit":        opts.Limit,
		"offset":       opts.Offset,
	})
}

// Audit reports whether the caller's balance matches their transaction log.
func (h *Handler) Audit(c *fiber.Ctx) error {
	rec, err := h.service.Audit(c.UserContext(), identity.FromContext(c.UserContext()))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":   rec.WalletID,
		"balance":     money.Format(rec.Balance),
		"ledger_sum":  money.Format(rec.LedgerSum),
		"entry_count": rec.EntryCount,
		"consistent":  rec.Consistent(),
	})
}

// parseAmount accepts the amount as a JSON string ("12.50") or number (12.5).
// Numbers are read from their literal text, never through float64.
func parseAmount(body []byte) string {
	var req amountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	raw := bytes.TrimSpace(req.Amount)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	}
	return string(raw)
}

func writeError(c *fiber.Ctx, err error) error {
	kind := KindOf(err)
	status := http.StatusServiceUnavailable
	switch kind {
	case KindUnauthenticated:
		status = http.StatusUnauthorized
	case KindInvalidAmount:
		status = http.StatusBadRequest
	case KindInsufficientFunds:
		status = http.StatusConflict
	default:
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	}
	return c.Status(status).JSON(fiber.Map{"error": errorBody{Code: string(kind), Message: Message(err)}})
}

func toWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:           w.ID,
		OwnerID:      w.OwnerID,
		Balance:      money.Format(w.Balance),
		BalanceMinor: w.Balance,
		Currency:     money.Currency,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
	}
}

func toTransactionResponse(tx ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:                tx.ID,
		WalletID:          tx.WalletID,
		Type:              string(tx.Type),
		Amount:            money.Format(tx.Amount),
		AmountMinor:       tx.Amount,
		BalanceAfter:      money.Format(tx.BalanceAfter),
		BalanceAfterMinor: tx.BalanceAfter,
		Currency:          money.Currency,
		CreatedAt:         tx.CreatedAt,
	}
}
