package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the display currency for every wallet.
const Currency = "USD"

const (
	// minorDigits is the number of fractional digits in one major unit (cents).
	minorDigits = 2
	// maxInputLen caps the amount text before it is parsed.
	maxInputLen = 64
	// maxExponent is the largest base-10 exponent that can still fit in int64
	// minor units once shifted by minorDigits.
	maxExponent = 18 - minorDigits
)

var (
	// ErrInvalidAmount is returned for non-numeric, non-positive, sub-cent or
	// out of range amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// Parse converts a user-entered decimal string such as "12.50" into minor
// units (1250). Only strictly positive amounts with at most two fractional
// digits are accepted.
func Parse(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if len(s) > maxInputLen {
		return 0, fmt.Errorf("%w: too long", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	// Exponent bounds keep Shift and the range check from materializing huge
	// integers for inputs like "1e99999999".
	exp := d.Exponent()
	if exp > maxExponent {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	if exp < -maxInputLen {
		return 0, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, minorDigits)
	}
	minor := d.Shift(minorDigits)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, minorDigits)
	}
	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	return minor.IntPart(), nil
}

// Format renders minor units as a fixed two-decimal string, e.g. 1250 -> "12.50".
func Format(minor int64) string {
	return decimal.New(minor, -minorDigits).StringFixed(minorDigits)
}
