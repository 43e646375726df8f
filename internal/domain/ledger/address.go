// internal/domain/ledger/address.go
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	solanago "github.com/gagliardetto/solana-go"
)

var ErrInvalidAddress = errors.New("ledger: invalid address")

// ParseAddress strictly decodes a base58 identity. It never touches the network.
func ParseAddress(s string) (common.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.PublicKey{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	pk, err := solanago.PublicKeyFromBase58(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return common.PublicKeyFromBytes(pk.Bytes()), nil
}

// MaskShort keeps the first and last 4 characters of long identifiers for logs.
func MaskShort(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}

// Shorten renders an address for display, e.g. "AbCd...WxYz".
func Shorten(s string, head int) string {
	t := strings.TrimSpace(s)
	if len(t) <= head+4 {
		return t
	}
	return t[:head] + "..." + t[len(t)-4:]
}
