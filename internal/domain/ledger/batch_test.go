package ledger

import (
	"crypto/ed25519"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshness() string {
	return types.NewAccount().PublicKey.ToBase58()
}

func createMintBatch(t *testing.T, payer, mint common.PublicKey) *Batch {
	t.Helper()
	holding, err := HoldingAddress(payer, mint)
	require.NoError(t, err)
	return NewBatch(
		CreateMintAccountOp(payer, mint, 1_461_600),
		InitializeMintOp(mint, payer, 9),
		CreateHoldingAccountOp(payer, payer, mint, holding),
		MintToOp(mint, holding, payer, 1_000_000_000),
	)
}

func TestBatch_SealValidation(t *testing.T) {
	payer := types.NewAccount().PublicKey

	require.ErrorIs(t, NewBatch().Seal(payer, freshness()), ErrEmptyBatch)

	b := NewBatch(TransferOp(payer, payer, payer, 1))
	require.ErrorIs(t, b.Seal(common.PublicKey{}, freshness()), ErrNoFeePayer)
	require.ErrorIs(t, b.Seal(payer, "  "), ErrNoFreshness)

	require.NoError(t, b.Seal(payer, freshness()))
	assert.True(t, b.Sealed())
	assert.ErrorIs(t, b.Seal(payer, freshness()), ErrBatchSealed)
	assert.ErrorIs(t, b.Add(TransferOp(payer, payer, payer, 2)), ErrBatchSealed)
}

func TestBatch_UnsealedHasNoSigners(t *testing.T) {
	payer := types.NewAccount()
	b := NewBatch(TransferOp(payer.PublicKey, payer.PublicKey, payer.PublicKey, 1))

	assert.Nil(t, b.RequiredSigners())
	assert.False(t, b.FullySigned())
	assert.ErrorIs(t, b.SignWith(payer), ErrBatchNotSealed)
	_, err := b.Transaction()
	assert.ErrorIs(t, err, ErrBatchNotSealed)
}

func TestBatch_SignAndCompile(t *testing.T) {
	payer := types.NewAccount()
	mint := types.NewAccount()

	b := createMintBatch(t, payer.PublicKey, mint.PublicKey)
	require.Equal(t, 4, b.Len())
	require.NoError(t, b.Seal(payer.PublicKey, freshness()))

	signers := b.RequiredSigners()
	require.Len(t, signers, 2)
	assert.Equal(t, payer.PublicKey, signers[0], "fee payer signs first in the message")
	assert.Contains(t, signers, mint.PublicKey)

	_, err := b.Transaction()
	require.ErrorIs(t, err, ErrMissingSignatures)

	// mint keypair first, wallet last
	require.NoError(t, b.SignWith(mint))
	assert.True(t, b.SignedBy(mint.PublicKey))
	assert.False(t, b.FullySigned())
	assert.Equal(t, []common.PublicKey{payer.PublicKey}, b.MissingSigners())

	require.NoError(t, b.SignWith(payer))
	require.True(t, b.FullySigned())

	tx, err := b.Transaction()
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 2)

	msg, err := b.MessageBytes()
	require.NoError(t, err)
	for i, pub := range b.RequiredSigners() {
		assert.True(t, ed25519.Verify(ed25519.PublicKey(pub.Bytes()), msg, tx.Signatures[i]))
	}
}

func TestBatch_AttachSignatureRejects(t *testing.T) {
	payer := types.NewAccount()
	stranger := types.NewAccount()

	b := NewBatch(TransferOp(payer.PublicKey, stranger.PublicKey, payer.PublicKey, 1))
	require.NoError(t, b.Seal(payer.PublicKey, freshness()))
	msg, err := b.MessageBytes()
	require.NoError(t, err)

	assert.ErrorIs(t, b.AttachSignature(stranger.PublicKey, stranger.Sign(msg)), ErrNotASigner)
	assert.ErrorIs(t, b.AttachSignature(payer.PublicKey, stranger.Sign(msg)), ErrBadSignature)
	assert.ErrorIs(t, b.AttachSignature(payer.PublicKey, []byte{1, 2, 3}), ErrBadSignature)

	require.NoError(t, b.AttachSignature(payer.PublicKey, payer.Sign(msg)))
	assert.ErrorIs(t, b.SignWith(payer), ErrAlreadySignedByKey)
}
