package mail

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

type captureClient struct {
	from, to, subject, body string
	sent                    int
}

func (c *captureClient) Send(_ context.Context, from, to, subject, body string) error {
	c.from, c.to, c.subject, c.body = from, to, subject, body
	c.sent++
	return nil
}

func sampleRecord() tadom.Record {
	return tadom.Record{
		ID:         "run-1",
		Action:     workflow.ActionCreateToken,
		Mint:       "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		Outcome:    workflow.OutcomePartialSuccess,
		Signature:  "5sig",
		Warning:    "holding account missing",
		Reason:     workflow.KindSubmissionFailure,
		Message:    "Token X created with warnings",
		FinishedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRunSubject(t *testing.T) {
	assert.Equal(t, "[partial_success] create_token 7xKX***gAsU", RunSubject(sampleRecord()))

	r := sampleRecord()
	r.Mint = ""
	assert.Equal(t, "[partial_success] create_token", RunSubject(r))
}

func TestRunBody(t *testing.T) {
	body := RunBody(sampleRecord(), "devnet")
	assert.Contains(t, body, "Warning:   holding account missing\n")
	assert.Contains(t, body, "Reason:    submission_failure\n")
	assert.Contains(t, body, "Explorer:  https://explorer.solana.com/tx/5sig?cluster=devnet\n")
	assert.Contains(t, body, "Finished:  2026-05-01 10:00:00 UTC\n")
}

func TestRunMailer_NotifyRun(t *testing.T) {
	c := &captureClient{}
	m := NewRunMailer(c, "bot@example.com", "ops@example.com", "devnet")

	require.NoError(t, m.NotifyRun(context.Background(), sampleRecord()))
	assert.Equal(t, 1, c.sent)
	assert.Equal(t, "ops@example.com", c.to)

	m.OnlyProblems = true
	ok := sampleRecord()
	ok.Outcome = workflow.OutcomeSuccess
	require.NoError(t, m.NotifyRun(context.Background(), ok))
	assert.Equal(t, 1, c.sent, "successful runs are skipped")

	var unset *RunMailer
	assert.Error(t, unset.NotifyRun(context.Background(), ok))
}
