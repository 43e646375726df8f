// internal/domain/ledger/amount.go
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// MaxDecimals is the largest decimal-place count a mint may use.
const MaxDecimals = 9

var decimalRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

var (
	ErrInvalidAmount   = errors.New("ledger: invalid amount")
	ErrAmountOverflow  = errors.New("ledger: amount exceeds u64 base units")
	ErrInvalidDecimals = errors.New("ledger: decimals must be within [0,9]")
)

// ValidateDecimals checks d ∈ [0, MaxDecimals].
func ValidateDecimals(d int) (uint8, error) {
	if d < 0 || d > MaxDecimals {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDecimals, d)
	}
	return uint8(d), nil
}

// ToBaseUnits scales a human amount ("12", "0.5") by 10^decimals, truncating any
// fraction finer than one base unit. Only plain decimal notation is accepted.
func ToBaseUnits(amount string, decimals uint8) (uint64, error) {
	s := strings.TrimSpace(amount)
	if !decimalRe.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	units := new(big.Int).Quo(r.Num(), r.Denom())
	if !units.IsUint64() {
		return 0, fmt.Errorf("%w: %q with %d decimals", ErrAmountOverflow, amount, decimals)
	}
	return units.Uint64(), nil
}

// FormatBaseUnits renders raw base units as a human amount without trailing zeros.
func FormatBaseUnits(raw uint64, decimals uint8) string {
	s := new(big.Int).SetUint64(raw).String()
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ValidateAmount checks the notation of a human amount before any decimals are known.
// Zero is rejected unless allowZero is set.
func ValidateAmount(amount string, allowZero bool) error {
	s := strings.TrimSpace(amount)
	if !decimalRe.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if !allowZero && strings.Trim(s, "0.") == "" {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return nil
}
