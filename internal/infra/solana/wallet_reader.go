// internal/infra/solana/wallet_reader.go
package solana

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
)

// OnchainWalletReader implements usecase.HoldingReader over getTokenAccountsByOwner.
type OnchainWalletReader struct {
	Client     *JSONRPCClient
	Commitment string
}

var _ usecase.HoldingReader = (*OnchainWalletReader)(nil)

func NewOnchainWalletReader(c *JSONRPCClient, commitment string) *OnchainWalletReader {
	return &OnchainWalletReader{Client: c, Commitment: commitment}
}

// ListHoldings returns every SPL token account of owner in RPC order.
// Zero-balance accounts are kept so a freshly created token shows up before minting.
func (r *OnchainWalletReader) ListHoldings(ctx context.Context, owner common.PublicKey) ([]portfolio.Holding, error) {
	if r == nil || r.Client == nil {
		return nil, fmt.Errorf("solana wallet reader: client not configured")
	}

	res, err := r.Client.GetTokenAccountsByOwner(ctx, owner.ToBase58(), common.TokenProgramID.ToBase58(), r.Commitment)
	if err != nil {
		return nil, err
	}

	out := make([]portfolio.Holding, 0, len(res.Value))
	for _, v := range res.Value {
		info := v.Account.Data.Parsed.Info
		mint := strings.TrimSpace(info.Mint)
		if mint == "" {
			continue
		}
		amt, err := strconv.ParseUint(strings.TrimSpace(info.TokenAmount.Amount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("solana wallet reader: account %s amount %q: %w", v.Pubkey, info.TokenAmount.Amount, err)
		}
		dec := info.TokenAmount.Decimals
		if dec < 0 || dec > 255 {
			return nil, fmt.Errorf("solana wallet reader: account %s decimals %d out of range", v.Pubkey, dec)
		}
		out = append(out, portfolio.Holding{
			Mint:     mint,
			Account:  strings.TrimSpace(v.Pubkey),
			Amount:   amt,
			Decimals: uint8(dec),
		})
	}
	return out, nil
}
