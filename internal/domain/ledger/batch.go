// internal/domain/ledger/batch.go
package ledger

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

var (
	ErrEmptyBatch         = errors.New("ledger: batch has no operations")
	ErrBatchSealed        = errors.New("ledger: batch is already sealed")
	ErrBatchNotSealed     = errors.New("ledger: batch is not sealed")
	ErrNoFeePayer         = errors.New("ledger: fee payer is empty")
	ErrNoFreshness        = errors.New("ledger: freshness token is empty")
	ErrNotASigner         = errors.New("ledger: identity is not a required signer")
	ErrBadSignature       = errors.New("ledger: signature does not verify")
	ErrMissingSignatures  = errors.New("ledger: batch is missing signatures")
	ErrAlreadySignedByKey = errors.New("ledger: identity already signed")
)

// Batch is an ordered list of operations submitted as one transaction.
//
// Operations are appended while the batch is open. Seal attaches the fee payer and the
// freshness token (recent blockhash) and compiles the message; after that only signatures
// can be added. Operations must be sealed as late as possible because the freshness token
// expires after a short window.
type Batch struct {
	Operations []types.Instruction

	FeePayer  common.PublicKey
	Freshness string

	sealed bool
	msg    types.Message
	sigs   []types.Signature
}

// NewBatch creates an open batch holding ops in order.
func NewBatch(ops ...types.Instruction) *Batch {
	b := &Batch{Operations: make([]types.Instruction, 0, len(ops))}
	b.Operations = append(b.Operations, ops...)
	return b
}

// Add appends operations. Order matters: an account must be created before any later
// operation in the same batch references it.
func (b *Batch) Add(ops ...types.Instruction) error {
	if b.sealed {
		return ErrBatchSealed
	}
	b.Operations = append(b.Operations, ops...)
	return nil
}

func (b *Batch) Len() int { return len(b.Operations) }

func (b *Batch) Sealed() bool { return b.sealed }

// Seal sets the fee payer and freshness token and compiles the message.
// Every required signer gets an empty signature slot.
func (b *Batch) Seal(feePayer common.PublicKey, freshness string) error {
	if b.sealed {
		return ErrBatchSealed
	}
	if len(b.Operations) == 0 {
		return ErrEmptyBatch
	}
	if feePayer == (common.PublicKey{}) {
		return ErrNoFeePayer
	}
	freshness = strings.TrimSpace(freshness)
	if freshness == "" {
		return ErrNoFreshness
	}

	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        feePayer,
		RecentBlockhash: freshness,
		Instructions:    b.Operations,
	})

	n := int(msg.Header.NumRequireSignatures)
	sigs := make([]types.Signature, n)
	for i := range sigs {
		sigs[i] = make([]byte, ed25519.SignatureSize)
	}

	b.FeePayer = feePayer
	b.Freshness = freshness
	b.msg = msg
	b.sigs = sigs
	b.sealed = true
	return nil
}

// MessageBytes is the serialized message every signer signs.
func (b *Batch) MessageBytes() ([]byte, error) {
	if !b.sealed {
		return nil, ErrBatchNotSealed
	}
	data, err := b.msg.Serialize()
	if err != nil {
		return nil, fmt.Errorf("ledger: serialize message: %w", err)
	}
	return data, nil
}

// RequiredSigners lists identities whose signature the ledger requires, fee payer first.
func (b *Batch) RequiredSigners() []common.PublicKey {
	if !b.sealed {
		return nil
	}
	n := int(b.msg.Header.NumRequireSignatures)
	out := make([]common.PublicKey, 0, n)
	out = append(out, b.msg.Accounts[:n]...)
	return out
}

// SignedBy reports whether pub has already placed its signature.
func (b *Batch) SignedBy(pub common.PublicKey) bool {
	idx, ok := b.signerIndex(pub)
	if !ok {
		return false
	}
	return !isZeroSignature(b.sigs[idx])
}

// MissingSigners lists required signers that have not signed yet.
func (b *Batch) MissingSigners() []common.PublicKey {
	var out []common.PublicKey
	for i, pub := range b.RequiredSigners() {
		if isZeroSignature(b.sigs[i]) {
			out = append(out, pub)
		}
	}
	return out
}

// FullySigned is true once every required signer signed.
func (b *Batch) FullySigned() bool {
	return b.sealed && len(b.MissingSigners()) == 0
}

// SignWith signs the batch with a locally held keypair.
func (b *Batch) SignWith(acc types.Account) error {
	data, err := b.MessageBytes()
	if err != nil {
		return err
	}
	return b.AttachSignature(acc.PublicKey, acc.Sign(data))
}

// AttachSignature places a signature produced elsewhere (e.g. by a wallet) at pub's slot.
func (b *Batch) AttachSignature(pub common.PublicKey, sig []byte) error {
	data, err := b.MessageBytes()
	if err != nil {
		return err
	}
	idx, ok := b.signerIndex(pub)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotASigner, pub.ToBase58())
	}
	if !isZeroSignature(b.sigs[idx]) {
		return fmt.Errorf("%w: %s", ErrAlreadySignedByKey, pub.ToBase58())
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(pub.Bytes()), data, sig) {
		return fmt.Errorf("%w: %s", ErrBadSignature, pub.ToBase58())
	}
	b.sigs[idx] = types.Signature(sig)
	return nil
}

// Transaction returns the submittable transaction. It fails unless every required signer signed.
func (b *Batch) Transaction() (types.Transaction, error) {
	if !b.sealed {
		return types.Transaction{}, ErrBatchNotSealed
	}
	if missing := b.MissingSigners(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, m := range missing {
			names = append(names, m.ToBase58())
		}
		return types.Transaction{}, fmt.Errorf("%w: %s", ErrMissingSignatures, strings.Join(names, ","))
	}
	sigs := make([]types.Signature, len(b.sigs))
	copy(sigs, b.sigs)
	return types.Transaction{Signatures: sigs, Message: b.msg}, nil
}

func (b *Batch) signerIndex(pub common.PublicKey) (int, bool) {
	if !b.sealed {
		return 0, false
	}
	n := int(b.msg.Header.NumRequireSignatures)
	for i := 0; i < n && i < len(b.msg.Accounts); i++ {
		if b.msg.Accounts[i] == pub {
			return i, true
		}
	}
	return 0, false
}

func isZeroSignature(sig []byte) bool {
	for _, c := range sig {
		if c != 0 {
			return false
		}
	}
	return true
}
