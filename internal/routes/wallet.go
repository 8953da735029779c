package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paydemo/wallet_ledger/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints. mutate runs ahead of the
// deposit and withdraw handlers only.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, mutate ...fiber.Handler) {
	group := r.Group("/wallet")
	group.Get("", h.Get)
	group.Get("/transactions", h.Transactions)
	group.Get("/audit", h.Audit)
	group.Post("/deposit", chain(mutate, h.Deposit)...)
	group.Post("/withdraw", chain(mutate, h.Withdraw)...)
}

func chain(mw []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(mw)+1)
	return append(append(out, mw...), h)
}
