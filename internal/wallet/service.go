package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paydemo/wallet_ledger/internal/identity"
	"github.com/paydemo/wallet_ledger/internal/ledger"
	"github.com/paydemo/wallet_ledger/internal/money"
	"github.com/paydemo/wallet_ledger/internal/notification"
)

// DefaultTimeout bounds each store call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Service exposes wallet operations for an authenticated caller. Every
// method takes the caller's identity explicitly.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
	timeout  time.Duration
}

// NewService builds a wallet service. notifier may be nil; a non-positive
// timeout falls back to DefaultTimeout.
func NewService(store ledger.Store, notifier notification.Notifier, logger *slog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, notifier: notifier, logger: logger, timeout: timeout}
}

// Receipt is the outcome of a successful deposit or withdrawal.
type Receipt struct {
	Transaction ledger.Transaction
	Wallet      ledger.Wallet
}

// GetOrCreateWallet returns the caller's wallet, creating it with a zero
// balance on first use.
func (s *Service) GetOrCreateWallet(ctx context.Context, id identity.Identity) (ledger.Wallet, error) {
	if id.IsZero() {
		return ledger.Wallet{}, ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w, err := s.store.CreateWalletIfAbsent(ctx, id.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "get or create wallet failed", "user_id", id.UserID, "error", err)
		return ledger.Wallet{}, unavailable("get or create wallet", err)
	}
	return w, nil
}

// Deposit credits amount, a decimal string in major units, to the caller's
// wallet.
func (s *Service) Deposit(ctx context.Context, id identity.Identity, amount string) (Receipt, error) {
	return s.apply(ctx, id, ledger.EntryDeposit, amount)
}

// Withdraw debits amount from the caller's wallet. It fails with
// ErrInsufficientFunds rather than letting the balance go negative.
func (s *Service) Withdraw(ctx context.Context, id identity.Identity, amount string) (Receipt, error) {
	return s.apply(ctx, id, ledger.EntryWithdraw, amount)
}

func (s *Service) apply(ctx context.Context, id identity.Identity, kind ledger.EntryType, raw string) (Receipt, error) {
	if id.IsZero() {
		return Receipt{}, ErrUnauthenticated
	}
	minor, err := money.Parse(raw)
	if err != nil {
		return Receipt{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w, err := s.store.CreateWalletIfAbsent(ctx, id.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "wallet lookup failed", "user_id", id.UserID, "type", kind, "error", err)
		return Receipt{}, unavailable(string(kind), err)
	}

	updated, tx, err := s.store.ApplyEntry(ctx, w.ID, kind, minor)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrInsufficientFunds):
		s.logger.InfoContext(ctx, "withdrawal rejected", "wallet_id", w.ID, "amount", minor, "reason", err)
		return Receipt{}, err
	case errors.Is(err, ledger.ErrInvalidEntry):
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	default:
		s.logger.ErrorContext(ctx, "ledger entry failed", "wallet_id", w.ID, "type", kind, "amount", minor, "error", err)
		return Receipt{}, unavailable(string(kind), err)
	}

	s.logger.InfoContext(ctx, "ledger entry applied",
		"wallet_id", w.ID,
		"transaction_id", tx.ID,
		"type", kind,
		"amount", tx.Amount,
		"balance", updated.Balance,
	)
	s.notify(ctx, id, tx)

	return Receipt{Transaction: tx, Wallet: updated}, nil
}

// ListTransactions returns the caller's transactions, newest first. A caller
// who has never used their wallet gets an empty list; listing does not
// create a wallet.
func (s *Service) ListTransactions(ctx context.Context, id identity.Identity, opts ledger.ListOptions) ([]ledger.Transaction, error) {
	if id.IsZero() {
		return nil, ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w, err := s.store.WalletByOwner(ctx, id.UserID)
	if errors.Is(err, ledger.ErrWalletNotFound) {
		return []ledger.Transaction{}, nil
	}
	if err != nil {
		return nil, unavailable("list transactions", err)
	}

	txs, err := s.store.ListTransactions(ctx, w.ID, opts)
	if err != nil {
		return nil, unavailable("list transactions", err)
	}
	return txs, nil
}

// Audit compares the caller's stored balance with the sum of their
// transaction log.
func (s *Service) Audit(ctx context.Context, id identity.Identity) (ledger.Reconciliation, error) {
	if id.IsZero() {
		return ledger.Reconciliation{}, ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	w, err := s.store.WalletByOwner(ctx, id.UserID)
	if errors.Is(err, ledger.ErrWalletNotFound) {
		return ledger.Reconciliation{}, nil
	}
	if err != nil {
		return ledger.Reconciliation{}, unavailable("audit", err)
	}

	rec, err := s.store.Reconcile(ctx, w.ID)
	if err != nil {
		return ledger.Reconciliation{}, unavailable("audit", err)
	}
	if !rec.Consistent() {
		s.logger.ErrorContext(ctx, "balance does not match ledger",
			"wallet_id", w.ID, "balance", rec.Balance, "ledger_sum", rec.LedgerSum)
	}
	return rec, nil
}

func (s *Service) notify(ctx context.Context, id identity.Identity, tx ledger.Transaction) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        notification.KindDepositCompleted,
		Destination: id.UserID,
		Body: fmt.Sprintf("%s %s deposited. New balance %s %s.",
			money.Format(tx.Amount), money.Currency, money.Format(tx.BalanceAfter), money.Currency),
	}
	if tx.Type == ledger.EntryWithdraw {
		msg.Kind = notification.KindWithdrawCompleted
		msg.Body = fmt.Sprintf("%s %s withdrawn. New balance %s %s.",
			money.Format(tx.Amount), money.Currency, money.Format(tx.BalanceAfter), money.Currency)
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "kind", msg.Kind, "user_id", id.UserID, "error", err)
	}
}
