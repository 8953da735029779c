package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInsufficientFunds occurs when a withdrawal exceeds the wallet balance
	// observed while the entry is being applied.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletNotFound indicates no wallet exists for the given id or owner.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidEntry rejects entries with a non-positive amount or unknown type.
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// EntryType is the kind of a ledger entry. The sign of an entry's amount is
// implied by its type.
type EntryType string

const (
	EntryDeposit  EntryType = "deposit"
	EntryWithdraw EntryType = "withdraw"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == EntryDeposit || t == EntryWithdraw
}

// Signed returns amount with the sign implied by t.
func (t EntryType) Signed(amount int64) int64 {
	if t == EntryWithdraw {
		return -amount
	}
	return amount
}

// Wallet is a per-owner account. Balance is held in minor units and always
// equals the sum of the signed amounts of the wallet's transactions.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID           string
	Seq          int64
	WalletID     string
	Type         EntryType
	Amount       int64
	BalanceAfter int64
	CreatedAt    time.Time
}

// SignedAmount returns the entry's contribution to the wallet balance.
func (t Transaction) SignedAmount() int64 {
	return t.Type.Signed(t.Amount)
}

// ListOptions pages through a wallet's history. A non-positive Limit returns
// every remaining entry.
type ListOptions struct {
	Limit  int
	Offset int
}

// Reconciliation compares the stored balance with the transaction log.
type Reconciliation struct {
	WalletID   string
	Balance    int64
	LedgerSum  int64
	EntryCount int64
}

// Consistent reports whether the stored balance matches the log.
func (r Reconciliation) Consistent() bool {
	return r.Balance == r.LedgerSum
}

// Store defines the contract implemented by ledger backends (Postgres, SQLite,
// in-memory).
type Store interface {
	CreateWalletIfAbsent(ctx context.Context, ownerID string) (Wallet, error)
	WalletByOwner(ctx context.Context, ownerID string) (Wallet, error)
	ApplyEntry(ctx context.Context, walletID string, kind EntryType, amount int64) (Wallet, Transaction, error)
	ListTransactions(ctx context.Context, walletID string, opts ListOptions) ([]Transaction, error)
	Reconcile(ctx context.Context, walletID string) (Reconciliation, error)
	Ping(ctx context.Context) error
}

func validateEntry(kind EntryType, amount int64) error {
	if !kind.Valid() || amount <= 0 {
		return ErrInvalidEntry
	}
	return nil
}

// nextBalance applies an entry to balance, refusing to go below zero.
func nextBalance(balance int64, kind EntryType, amount int64) (int64, error) {
	if kind == EntryWithdraw && amount > balance {
		return 0, ErrInsufficientFunds
	}
	if kind == EntryDeposit && amount > math.MaxInt64-balance {
		return 0, fmt.Errorf("%w: balance overflow", ErrInvalidEntry)
	}
	return balance + kind.Signed(amount), nil
}

// entryTime returns a timestamp that never precedes the wallet's last entry,
// keeping createdAt non-decreasing in log order even if the clock steps back.
func entryTime(now, last time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if now.Before(last) {
		return last
	}
	return now
}
