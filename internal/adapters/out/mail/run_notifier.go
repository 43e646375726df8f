// internal/adapters/out/mail/run_notifier.go
package mail

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

// RunMailer e-mails a summary of every finished run.
type RunMailer struct {
	Client EmailClient
	From   string
	To     string

	// OnlyProblems skips successful runs.
	OnlyProblems bool
	Cluster      string
}

var _ usecase.Notifier = (*RunMailer)(nil)

func NewRunMailer(client EmailClient, from, to, cluster string) *RunMailer {
	return &RunMailer{Client: client, From: from, To: to, Cluster: cluster}
}

func (m *RunMailer) NotifyRun(ctx context.Context, rec tadom.Record) error {
	if m == nil || m.Client == nil {
		return fmt.Errorf("run mailer: not configured")
	}
	if m.OnlyProblems && rec.Outcome == workflow.OutcomeSuccess {
		return nil
	}
	return m.Client.Send(ctx, m.From, m.To, RunSubject(rec), RunBody(rec, m.Cluster))
}

// RunSubject is "[success] create_token 7xKX***AsU".
func RunSubject(rec tadom.Record) string {
	s := fmt.Sprintf("[%s] %s", rec.Outcome, rec.Action)
	if rec.Mint != "" {
		s += " " + ledger.MaskShort(rec.Mint)
	}
	return s
}

func RunBody(rec tadom.Record, cluster string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:       %s\n", rec.ID)
	fmt.Fprintf(&b, "Action:    %s\n", rec.Action)
	fmt.Fprintf(&b, "Outcome:   %s\n", rec.Outcome)
	fmt.Fprintf(&b, "Message:   %s\n", rec.Message)
	if rec.Warning != "" {
		fmt.Fprintf(&b, "Warning:   %s\n", rec.Warning)
	}
	if rec.Reason != workflow.KindNone {
		fmt.Fprintf(&b, "Reason:    %s\n", rec.Reason)
	}
	if rec.Mint != "" {
		fmt.Fprintf(&b, "Mint:      %s\n", rec.Mint)
	}
	if rec.Signature != "" {
		fmt.Fprintf(&b, "Signature: %s\n", rec.Signature)
		fmt.Fprintf(&b, "Explorer:  %s\n", portfolio.ExplorerURL(rec.Signature, cluster))
	}
	fmt.Fprintf(&b, "Finished:  %s\n", rec.FinishedAt.Format("2006-01-02 15:04:05 MST"))
	return b.String()
}

// LogNotifier writes one log line per finished run.
type LogNotifier struct{}

var _ usecase.Notifier = LogNotifier{}

func (LogNotifier) NotifyRun(_ context.Context, rec tadom.Record) error {
	log.Printf("[notify] run=%s action=%s outcome=%s reason=%s mint=%s sig=%s",
		rec.ID, rec.Action, rec.Outcome, rec.Reason, ledger.MaskShort(rec.Mint), ledger.MaskShort(rec.Signature))
	return nil
}
