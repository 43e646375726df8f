// internal/application/usecase/portfolio_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/blocto/solana-go-sdk/common"
	"golang.org/x/sync/errgroup"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
)

// ============================================================
// Ports
// ============================================================

// HoldingReader lists the SPL token accounts of an owner (mint, amount, decimals only).
type HoldingReader interface {
	ListHoldings(ctx context.Context, owner common.PublicKey) ([]portfolio.Holding, error)
}

// MetadataReader resolves Metaplex metadata for a mint. found=false when none exists.
type MetadataReader interface {
	TokenMetadata(ctx context.Context, mint common.PublicKey) (md portfolio.Metadata, found bool, err error)
}

// HistoryReader reads recent signatures and their parsed transactions.
type HistoryReader interface {
	RecentSignatures(ctx context.Context, owner common.PublicKey, limit int) ([]portfolio.SignatureInfo, error)
	ParsedTransaction(ctx context.Context, signature string) (*portfolio.ParsedTx, error)
}

// BalanceReader reads SOL balances and requests devnet airdrops.
type BalanceReader interface {
	GetBalance(ctx context.Context, owner common.PublicKey) (uint64, error)
	RequestAirdrop(ctx context.Context, owner common.PublicKey, lamports uint64) (string, error)
}

// ============================================================
// Usecase
// ============================================================

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
	DefaultAirdropSOL   = 2.0
	MaxAirdropSOL       = 5.0 // devnet faucet の上限

	lookupConcurrency = 4
)

var (
	ErrPortfolioNotConfigured = errors.New("portfolio_uc: not configured")
	ErrInvalidAirdropAmount   = errors.New("portfolio_uc: airdrop amount must be positive and at most 5 SOL")
)

type PortfolioUsecase struct {
	wallet   wallet.Wallet
	holdings HoldingReader
	metadata MetadataReader
	history  HistoryReader
	balances BalanceReader
	ledger   LedgerClient

	cluster    string
	commitment ledger.Commitment
}

func NewPortfolioUsecase(
	w wallet.Wallet,
	holdings HoldingReader,
	metadata MetadataReader,
	history HistoryReader,
	balances BalanceReader,
	lc LedgerClient,
	cluster string,
) *PortfolioUsecase {
	return &PortfolioUsecase{
		wallet:     w,
		holdings:   holdings,
		metadata:   metadata,
		history:    history,
		balances:   balances,
		ledger:     lc,
		cluster:    cluster,
		commitment: ledger.CommitmentConfirmed,
	}
}

func (u *PortfolioUsecase) owner(ctx context.Context) (common.PublicKey, error) {
	if u.wallet == nil {
		return common.PublicKey{}, wallet.ErrNotConnected
	}
	pub, ok := u.wallet.Identity(ctx)
	if !ok || pub == (common.PublicKey{}) {
		return common.PublicKey{}, wallet.ErrNotConnected
	}
	return pub, nil
}

// ListTokens returns every holding of the connected wallet, described with metadata when
// available. Metadata lookup failures fall back to the shortened mint.
func (u *PortfolioUsecase) ListTokens(ctx context.Context) ([]portfolio.Holding, error) {
	owner, err := u.owner(ctx)
	if err != nil {
		return nil, err
	}
	if u.holdings == nil {
		return nil, ErrPortfolioNotConfigured
	}

	hs, err := u.holdings.ListHoldings(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("portfolio_uc: list holdings owner=%s: %w", ledger.MaskShort(owner.ToBase58()), err)
	}

	out := make([]portfolio.Holding, len(hs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i := range hs {
		i := i
		g.Go(func() error {
			out[i] = u.describe(gctx, hs[i])
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (u *PortfolioUsecase) describe(ctx context.Context, h portfolio.Holding) portfolio.Holding {
	if u.metadata == nil {
		return h.Describe(portfolio.Metadata{}, false)
	}
	mint, err := ledger.ParseAddress(h.Mint)
	if err != nil {
		return h.Describe(portfolio.Metadata{}, false)
	}
	md, found, err := u.metadata.TokenMetadata(ctx, mint)
	if err != nil {
		log.Printf("[portfolio_uc] metadata lookup failed mint=%s err=%v", ledger.MaskShort(h.Mint), err)
		return h.Describe(portfolio.Metadata{}, false)
	}
	return h.Describe(md, found)
}

// History returns the most recent transactions of the connected wallet, newest first.
// A transaction that cannot be fetched is kept and classified Unknown.
func (u *PortfolioUsecase) History(ctx context.Context, limit int) ([]portfolio.HistoryEntry, error) {
	owner, err := u.owner(ctx)
	if err != nil {
		return nil, err
	}
	if u.history == nil {
		return nil, ErrPortfolioNotConfigured
	}
	limit = NormalizeHistoryLimit(limit)

	sigs, err := u.history.RecentSignatures(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("portfolio_uc: recent signatures owner=%s: %w", ledger.MaskShort(owner.ToBase58()), err)
	}

	txs := make([]*portfolio.ParsedTx, len(sigs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i := range sigs {
		i := i
		g.Go(func() error {
			tx, err := u.history.ParsedTransaction(gctx, sigs[i].Signature)
			if err != nil {
				log.Printf("[portfolio_uc] fetch transaction failed sig=%s err=%v", ledger.MaskShort(sigs[i].Signature), err)
				return nil
			}
			txs[i] = tx
			return nil
		})
	}
	_ = g.Wait()

	out := make([]portfolio.HistoryEntry, 0, len(sigs))
	for i, s := range sigs {
		out = append(out, portfolio.NewHistoryEntry(s, txs[i], u.cluster))
	}
	return out, nil
}

// NormalizeHistoryLimit clamps limit to [1, MaxHistoryLimit], defaulting to DefaultHistoryLimit.
func NormalizeHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// Balance returns the identity and SOL balance of the connected wallet.
func (u *PortfolioUsecase) Balance(ctx context.Context) (portfolio.WalletInfo, error) {
	owner, err := u.owner(ctx)
	if err != nil {
		return portfolio.WalletInfo{}, err
	}
	if u.balances == nil {
		return portfolio.WalletInfo{}, ErrPortfolioNotConfigured
	}
	lamports, err := u.balances.GetBalance(ctx, owner)
	if err != nil {
		return portfolio.WalletInfo{}, fmt.Errorf("portfolio_uc: balance owner=%s: %w", ledger.MaskShort(owner.ToBase58()), err)
	}
	return portfolio.NewWalletInfo(owner.ToBase58(), lamports), nil
}

// Airdrop requests sol SOL from the devnet faucet and waits for confirmation.
// sol == 0 uses DefaultAirdropSOL; amounts above MaxAirdropSOL are rejected.
func (u *PortfolioUsecase) Airdrop(ctx context.Context, sol float64) (string, error) {
	owner, err := u.owner(ctx)
	if err != nil {
		return "", err
	}
	if u.balances == nil {
		return "", ErrPortfolioNotConfigured
	}
	if sol == 0 {
		sol = DefaultAirdropSOL
	}
	if sol < 0 || sol > MaxAirdropSOL || math.IsNaN(sol) || math.IsInf(sol, 0) {
		return "", ErrInvalidAirdropAmount
	}
	lamports := uint64(sol * float64(portfolio.LamportsPerSOL))
	if lamports == 0 {
		return "", ErrInvalidAirdropAmount
	}

	sig, err := u.balances.RequestAirdrop(ctx, owner, lamports)
	if err != nil {
		return "", fmt.Errorf("portfolio_uc: airdrop owner=%s: %w", ledger.MaskShort(owner.ToBase58()), err)
	}
	log.Printf("[portfolio_uc] airdrop requested owner=%s lamports=%d sig=%s", ledger.MaskShort(owner.ToBase58()), lamports, ledger.MaskShort(sig))

	if u.ledger != nil {
		conf, err := u.ledger.AwaitConfirmation(ctx, sig, u.commitment)
		if err != nil {
			return sig, fmt.Errorf("portfolio_uc: airdrop confirmation sig=%s: %w", ledger.MaskShort(sig), err)
		}
		if conf.Failed() {
			return sig, fmt.Errorf("portfolio_uc: airdrop failed sig=%s: %s", ledger.MaskShort(sig), conf.Err)
		}
	}
	return sig, nil
}
