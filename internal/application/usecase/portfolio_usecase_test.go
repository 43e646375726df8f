package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
)

func TestPortfolio_ListTokens(t *testing.T) {
	named := types.NewAccount().PublicKey.ToBase58()
	bare := types.NewAccount().PublicKey.ToBase58()
	broken := types.NewAccount().PublicKey.ToBase58()

	hs := &fakeHoldings{holdings: []portfolio.Holding{
		{Mint: named, Amount: 1500, Decimals: 2},
		{Mint: bare, Amount: 7, Decimals: 0},
		{Mint: broken, Amount: 1, Decimals: 9},
	}}
	md := &fakeMetadata{
		byMint: map[string]portfolio.Metadata{named: {Name: "Named\x00\x00", Symbol: "NMD\x00"}},
		errFor: map[string]error{broken: errors.New("rpc 429")},
	}
	uc := NewPortfolioUsecase(newFakeWallet(), hs, md, nil, nil, nil, "devnet")

	out, err := uc.ListTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "Named", out[0].Name)
	assert.Equal(t, "NMD", out[0].Symbol)
	assert.Equal(t, "15", out[0].Balance)

	assert.Equal(t, portfolio.ShortAddress(bare), out[1].Name)
	assert.Equal(t, bare[:4], out[1].Symbol)

	assert.Equal(t, portfolio.ShortAddress(broken), out[2].Name, "lookup errors fall back like missing metadata")
}

func TestPortfolio_NotConnected(t *testing.T) {
	w := newFakeWallet()
	w.connected = false
	uc := NewPortfolioUsecase(w, &fakeHoldings{}, nil, &fakeHistory{}, &fakeBalances{}, nil, "devnet")

	_, err := uc.ListTokens(context.Background())
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
	_, err = uc.History(context.Background(), 5)
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
	_, err = uc.Balance(context.Background())
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
	_, err = uc.Airdrop(context.Background(), 1)
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestPortfolio_NotConfigured(t *testing.T) {
	uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, nil, nil, nil, "")

	_, err := uc.ListTokens(context.Background())
	assert.ErrorIs(t, err, ErrPortfolioNotConfigured)
	_, err = uc.History(context.Background(), 0)
	assert.ErrorIs(t, err, ErrPortfolioNotConfigured)
}

func TestPortfolio_History(t *testing.T) {
	h := &fakeHistory{
		sigs: []portfolio.SignatureInfo{
			{Signature: "s1", Slot: 3, BlockTime: 1_700_000_000, ConfirmationStatus: "finalized"},
			{Signature: "s2", Slot: 2, ConfirmationStatus: "confirmed"},
			{Signature: "s3", Slot: 1, Failed: true},
		},
		txs: map[string]*portfolio.ParsedTx{
			"s1": {ProgramIDs: []string{portfolio.TokenProgramID}, LogMessages: []string{"Program log: Instruction: MintTo"}},
			"s3": {ProgramIDs: []string{"11111111111111111111111111111111"}},
		},
		errFor: map[string]error{"s2": errors.New("not found")},
	}
	uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, h, nil, nil, "devnet")

	out, err := uc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultHistoryLimit, h.limit)
	require.Len(t, out, 3)

	assert.Equal(t, portfolio.TxTokenMint, out[0].Type)
	assert.Equal(t, portfolio.TxSuccess, out[0].Status)
	require.NotNil(t, out[0].BlockTime)

	assert.Equal(t, portfolio.TxUnknown, out[1].Type, "unfetchable transactions are kept")
	assert.Nil(t, out[1].BlockTime)

	assert.Equal(t, portfolio.TxSOL, out[2].Type)
	assert.Equal(t, portfolio.TxFailed, out[2].Status)
	assert.Equal(t, "https://explorer.solana.com/tx/s3?cluster=devnet", out[2].ExplorerURL)
}

func TestNormalizeHistoryLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, NormalizeHistoryLimit(0))
	assert.Equal(t, DefaultHistoryLimit, NormalizeHistoryLimit(-3))
	assert.Equal(t, 7, NormalizeHistoryLimit(7))
	assert.Equal(t, MaxHistoryLimit, NormalizeHistoryLimit(500))
}

func TestPortfolio_Balance(t *testing.T) {
	w := newFakeWallet()
	uc := NewPortfolioUsecase(w, nil, nil, nil, &fakeBalances{lamports: 2_500_000_000}, nil, "devnet")

	info, err := uc.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, w.acc.PublicKey.ToBase58(), info.Address)
	assert.Equal(t, "2.5", info.SOL)
}

func TestPortfolio_Airdrop(t *testing.T) {
	t.Run("default amount and confirmation", func(t *testing.T) {
		b := &fakeBalances{airdropSig: "sig-0"}
		lc := newFakeLedger()
		uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, nil, b, lc, "devnet")

		sig, err := uc.Airdrop(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, "sig-0", sig)
		assert.Equal(t, 2*portfolio.LamportsPerSOL, b.airdropped)
		assert.Equal(t, 1, lc.count("AwaitConfirmation"))
	})

	t.Run("invalid amount", func(t *testing.T) {
		b := &fakeBalances{}
		uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, nil, b, nil, "devnet")

		_, err := uc.Airdrop(context.Background(), -1)
		assert.ErrorIs(t, err, ErrInvalidAirdropAmount)
		_, err = uc.Airdrop(context.Background(), 1e-12)
		assert.ErrorIs(t, err, ErrInvalidAirdropAmount)
		_, err = uc.Airdrop(context.Background(), MaxAirdropSOL+0.5)
		assert.ErrorIs(t, err, ErrInvalidAirdropAmount)
		_, err = uc.Airdrop(context.Background(), 1e300)
		assert.ErrorIs(t, err, ErrInvalidAirdropAmount)
		_, err = uc.Airdrop(context.Background(), math.Inf(1))
		assert.ErrorIs(t, err, ErrInvalidAirdropAmount)
		assert.Zero(t, b.airdropped)
	})

	t.Run("faucet cap is accepted", func(t *testing.T) {
		b := &fakeBalances{airdropSig: "sig-0"}
		uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, nil, b, nil, "devnet")

		_, err := uc.Airdrop(context.Background(), MaxAirdropSOL)
		require.NoError(t, err)
		assert.Equal(t, 5*portfolio.LamportsPerSOL, b.airdropped)
	})

	t.Run("sent but not confirmed keeps the signature", func(t *testing.T) {
		b := &fakeBalances{airdropSig: "sig-0"}
		lc := newFakeLedger()
		lc.confirmErrs[0] = errors.New("timeout")
		uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, nil, b, lc, "devnet")

		sig, err := uc.Airdrop(context.Background(), 1)
		require.Error(t, err)
		assert.Equal(t, "sig-0", sig)
	})

	t.Run("faucet error", func(t *testing.T) {
		b := &fakeBalances{airdropErr: errors.New("rate limited")}
		uc := NewPortfolioUsecase(newFakeWallet(), nil, nil, nil, b, nil, "devnet")

		sig, err := uc.Airdrop(context.Background(), 1)
		require.Error(t, err)
		assert.Empty(t, sig)
	})
}
