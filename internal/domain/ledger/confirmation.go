// internal/domain/ledger/confirmation.go
package ledger

import "strings"

// Commitment is the ledger's confirmation level.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	}
	return 0
}

// Reaches reports whether c is at least as strong as want.
func (c Commitment) Reaches(want Commitment) bool {
	return c.rank() > 0 && c.rank() >= want.rank()
}

// ParseCommitment falls back to confirmed for unknown input.
func ParseCommitment(s string) Commitment {
	c := Commitment(strings.ToLower(strings.TrimSpace(s)))
	if c.rank() == 0 {
		return CommitmentConfirmed
	}
	return c
}

// Confirmation is what the ledger reports for a submitted batch.
// A non-empty Err means the batch landed but execution failed.
type Confirmation struct {
	Signature string
	Slot      uint64
	Status    Commitment
	Err       string
}

func (c Confirmation) Failed() bool { return c.Err != "" }

// MintInfo is the subset of an SPL mint account this service reads.
type MintInfo struct {
	Address       string
	Decimals      uint8
	Supply        uint64
	MintAuthority string
	IsInitialized bool
}
