// internal/domain/tokenAction/entity.go
package tokenAction

import (
	"errors"
	"strings"
	"time"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

// Record is the journal entry of one finished workflow run.
type Record struct {
	ID         string
	Action     workflow.Action
	Owner      string // wallet identity that paid and signed
	Mint       string
	Outcome    workflow.Outcome
	Reference  string
	Signature  string
	Warning    string
	Reason     workflow.ErrorKind
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}

var (
	ErrNotFound      = errors.New("tokenAction: not found")
	ErrConflict      = errors.New("tokenAction: already exists")
	ErrInvalidID     = errors.New("tokenAction: invalid id")
	ErrInvalidAction = errors.New("tokenAction: invalid action")
	ErrInvalidTimes  = errors.New("tokenAction: finishedAt before startedAt")
)

// FromResult builds a Record for run id from its terminal result.
func FromResult(id, owner, mint string, startedAt time.Time, r workflow.Result) (Record, error) {
	rec := Record{
		ID:         strings.TrimSpace(id),
		Action:     r.Action,
		Owner:      strings.TrimSpace(owner),
		Mint:       strings.TrimSpace(mint),
		Outcome:    r.Outcome,
		Reference:  r.Reference,
		Signature:  r.Signature,
		Warning:    r.Warning,
		Reason:     r.Reason,
		Message:    r.Message,
		StartedAt:  startedAt.UTC(),
		FinishedAt: r.At.UTC(),
	}
	if r.Action == workflow.ActionCreateToken && r.Reference != "" {
		rec.Mint = r.Reference
	}
	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r Record) validate() error {
	if r.ID == "" {
		return ErrInvalidID
	}
	switch r.Action {
	case workflow.ActionCreateToken, workflow.ActionMintMore, workflow.ActionSendToken:
	default:
		return ErrInvalidAction
	}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() && r.FinishedAt.Before(r.StartedAt) {
		return ErrInvalidTimes
	}
	return nil
}
