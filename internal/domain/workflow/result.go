// internal/domain/workflow/result.go
package workflow

import (
	"errors"
	"time"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
)

// Action is the user-facing operation a run executes.
type Action string

const (
	ActionCreateToken Action = "create_token"
	ActionMintMore    Action = "mint_more"
	ActionSendToken   Action = "send_token"
)

// Outcome is the terminal shape of a run.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialSuccess Outcome = "partial_success"
	OutcomeFailure        Outcome = "failure"
)

// ErrorKind is the failure taxonomy shown to users.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindNotConnected        ErrorKind = "not_connected"
	KindInvalidAddress      ErrorKind = "invalid_address"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindNoTokenAccount      ErrorKind = "no_token_account"
	KindUserRejected        ErrorKind = "user_rejected"
	KindSubmissionFailure   ErrorKind = "submission_failure"
	KindConfirmationFailure ErrorKind = "confirmation_failure"
)

var (
	ErrNoTokenAccount = errors.New("workflow: no holding account for mint")
	ErrSubmission     = errors.New("workflow: submission failed")
	ErrConfirmation   = errors.New("workflow: confirmation reported an execution error")
)

// Result is created once at the end of a run and never changed afterwards.
type Result struct {
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	Reference string    `json:"reference,omitempty"` // mint address for create, tx signature otherwise
	Signature string    `json:"signature,omitempty"` // last confirmed tx signature
	Warning   string    `json:"warning,omitempty"`
	Reason    ErrorKind `json:"reason,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`

	Err error `json:"-"`
}

func Success(a Action, reference, signature, message string) Result {
	return Result{
		Action:    a,
		Outcome:   OutcomeSuccess,
		Reference: reference,
		Signature: signature,
		Message:   message,
		At:        time.Now().UTC(),
	}
}

func PartialSuccess(a Action, reference, signature, warning, message string, err error) Result {
	return Result{
		Action:    a,
		Outcome:   OutcomePartialSuccess,
		Reference: reference,
		Signature: signature,
		Warning:   warning,
		Reason:    Classify(err),
		Message:   message,
		At:        time.Now().UTC(),
		Err:       err,
	}
}

func Failure(a Action, err error, message string) Result {
	return Result{
		Action:  a,
		Outcome: OutcomeFailure,
		Reason:  Classify(err),
		Message: message,
		At:      time.Now().UTC(),
		Err:     err,
	}
}

func (r Result) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// Classify maps an error chain onto the taxonomy. Unknown errors count as submission
// failures: they all happen before a batch is accepted by the ledger.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, wallet.ErrNotConnected):
		return KindNotConnected
	case errors.Is(err, ledger.ErrInvalidAddress):
		return KindInvalidAddress
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrAmountOverflow),
		errors.Is(err, ledger.ErrInvalidDecimals),
		errors.Is(err, ledger.ErrInvalidMetadata):
		return KindInvalidInput
	case errors.Is(err, ErrNoTokenAccount):
		return KindNoTokenAccount
	case errors.Is(err, wallet.ErrUserRejected):
		return KindUserRejected
	case errors.Is(err, ErrConfirmation):
		return KindConfirmationFailure
	default:
		return KindSubmissionFailure
	}
}
