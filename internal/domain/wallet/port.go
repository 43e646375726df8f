// internal/domain/wallet/port.go
package wallet

import (
	"context"
	"errors"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
)

var (
	// ErrNotConnected は identity / 署名能力が利用できない場合に返される。
	ErrNotConnected = errors.New("wallet: not connected")

	// ErrUserRejected は署名者が署名を拒否した場合に返される。
	ErrUserRejected = errors.New("wallet: signature request rejected")

	ErrSignatureMissing = errors.New("wallet: wallet returned without signing")
)

// Wallet is the key-holding collaborator. Connection lifecycle is managed elsewhere;
// this service only reads the identity and asks for signatures.
type Wallet interface {
	// Identity returns the connected public key, or false when nothing is connected.
	Identity(ctx context.Context) (common.PublicKey, bool)

	// SignBatch adds the wallet's signature to a sealed batch.
	// It returns ErrUserRejected when the holder declines.
	SignBatch(ctx context.Context, b *ledger.Batch) error
}

// Signer is the single signing capability used by the workflows.
type Signer interface {
	PublicKey() common.PublicKey
	Sign(ctx context.Context, b *ledger.Batch) error
	SignAll(ctx context.Context, bs []*ledger.Batch) error
}
