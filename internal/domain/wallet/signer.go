// internal/domain/wallet/signer.go
package wallet

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
)

// WalletSigner adapts a Wallet to Signer.
type WalletSigner struct {
	w   Wallet
	pub common.PublicKey
}

var _ Signer = (*WalletSigner)(nil)

// NewSigner resolves the wallet identity once. It fails with ErrNotConnected when the
// wallet is nil or has no identity.
func NewSigner(ctx context.Context, w Wallet) (*WalletSigner, error) {
	if w == nil {
		return nil, ErrNotConnected
	}
	pub, ok := w.Identity(ctx)
	if !ok || pub == (common.PublicKey{}) {
		return nil, ErrNotConnected
	}
	return &WalletSigner{w: w, pub: pub}, nil
}

func (s *WalletSigner) PublicKey() common.PublicKey { return s.pub }

func (s *WalletSigner) Sign(ctx context.Context, b *ledger.Batch) error {
	if b == nil || !b.Sealed() {
		return ledger.ErrBatchNotSealed
	}
	if err := s.w.SignBatch(ctx, b); err != nil {
		return err
	}
	if !b.SignedBy(s.pub) {
		return ErrSignatureMissing
	}
	return nil
}

func (s *WalletSigner) SignAll(ctx context.Context, bs []*ledger.Batch) error {
	return signAll(ctx, s, bs)
}

// KeypairSigner signs with a key held in process memory (e.g. a freshly generated mint).
type KeypairSigner struct {
	acc types.Account
}

var _ Signer = (*KeypairSigner)(nil)

func NewKeypairSigner(acc types.Account) *KeypairSigner {
	return &KeypairSigner{acc: acc}
}

func (s *KeypairSigner) PublicKey() common.PublicKey { return s.acc.PublicKey }

func (s *KeypairSigner) Sign(_ context.Context, b *ledger.Batch) error {
	if b == nil {
		return ledger.ErrBatchNotSealed
	}
	return b.SignWith(s.acc)
}

func (s *KeypairSigner) SignAll(ctx context.Context, bs []*ledger.Batch) error {
	return signAll(ctx, s, bs)
}

// SignInOrder collects signatures in the given order. Local keypairs go first and the
// external wallet last, since its signature finalizes the batch for submission.
func SignInOrder(ctx context.Context, b *ledger.Batch, signers ...Signer) error {
	for _, s := range signers {
		if s == nil {
			continue
		}
		if err := s.Sign(ctx, b); err != nil {
			return err
		}
	}
	if !b.FullySigned() {
		return fmt.Errorf("%w: %d signer(s) missing", ledger.ErrMissingSignatures, len(b.MissingSigners()))
	}
	return nil
}

func signAll(ctx context.Context, s Signer, bs []*ledger.Batch) error {
	for i, b := range bs {
		if err := s.Sign(ctx, b); err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
	}
	return nil
}
