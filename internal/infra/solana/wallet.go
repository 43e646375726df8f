// internal/infra/solana/wallet.go
package solana

import (
	"context"
	"log"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
)

// KeypairWallet is a server-side wallet holding one keypair in memory.
// It signs every batch it is asked to sign; there is no interactive approval.
type KeypairWallet struct {
	mu        sync.RWMutex
	acc       types.Account
	connected bool
}

var _ wallet.Wallet = (*KeypairWallet)(nil)

func NewKeypairWallet(acc types.Account) *KeypairWallet {
	return &KeypairWallet{acc: acc, connected: true}
}

// DisconnectedWallet returns a wallet without identity; every workflow fails with not_connected.
func DisconnectedWallet() *KeypairWallet {
	return &KeypairWallet{}
}

func (w *KeypairWallet) Identity(_ context.Context) (common.PublicKey, bool) {
	if w == nil {
		return common.PublicKey{}, false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.connected {
		return common.PublicKey{}, false
	}
	return w.acc.PublicKey, true
}

func (w *KeypairWallet) SignBatch(_ context.Context, b *ledger.Batch) error {
	if w == nil {
		return wallet.ErrNotConnected
	}
	w.mu.RLock()
	acc, ok := w.acc, w.connected
	w.mu.RUnlock()
	if !ok {
		return wallet.ErrNotConnected
	}
	return b.SignWith(acc)
}

// Disconnect drops the identity. Batches already signed are unaffected.
func (w *KeypairWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.connected {
		log.Printf("[wallet] disconnected pubkey=%s", ledger.MaskShort(w.acc.PublicKey.ToBase58()))
	}
	w.connected = false
}
