package wallet

import (
	"errors"
	"fmt"

	"github.com/paydemo/wallet_ledger/internal/ledger"
	"github.com/paydemo/wallet_ledger/internal/money"
)

var (
	// ErrUnauthenticated is returned when the call carries no identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidAmount covers non-numeric, non-positive and sub-cent amounts.
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds

	// ErrStoreUnavailable wraps any failure of the ledger store, including
	// timeouts. The operation had no effect unless the error says otherwise.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Kind is a stable, machine-readable error code.
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindInvalidAmount     Kind = "invalid_amount"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindStoreUnavailable  Kind = "store_unavailable"
)

// KindOf classifies err. Unrecognised errors are reported as
// KindStoreUnavailable; nil yields the empty Kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	default:
		return KindStoreUnavailable
	}
}

// Message returns the user-facing text for err's kind.
func Message(err error) string {
	switch KindOf(err) {
	case "":
		return ""
	case KindUnauthenticated:
		return "Please sign in to access your wallet."
	case KindInvalidAmount:
		return "Enter an amount greater than zero with at most two decimal places."
	case KindInsufficientFunds:
		return "Your balance is too low for this withdrawal."
	default:
		return "The wallet service is temporarily unavailable. Please try again."
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
