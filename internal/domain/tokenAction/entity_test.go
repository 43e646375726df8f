package tokenAction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

func TestFromResult(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	res := workflow.Success(workflow.ActionCreateToken, "MintAddr111", "sig", "Token TST created successfully!")
	res.At = started.Add(3 * time.Second)

	rec, err := FromResult(" run-1 ", "owner", "", started, res)
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.ID)
	assert.Equal(t, "MintAddr111", rec.Mint, "create stores the new mint")
	assert.Equal(t, workflow.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, res.At, rec.FinishedAt)
}

func TestFromResult_Validation(t *testing.T) {
	now := time.Now()
	ok := workflow.Success(workflow.ActionSendToken, "sig", "sig", "sent")

	_, err := FromResult("", "owner", "mint", now, ok)
	assert.ErrorIs(t, err, ErrInvalidID)

	bad := ok
	bad.Action = "burn"
	_, err = FromResult("id", "owner", "mint", now, bad)
	assert.ErrorIs(t, err, ErrInvalidAction)

	early := ok
	early.At = now.Add(-time.Minute)
	_, err = FromResult("id", "owner", "mint", now, early)
	assert.ErrorIs(t, err, ErrInvalidTimes)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultListLimit, NormalizeLimit(-3))
	assert.Equal(t, 5, NormalizeLimit(5))
	assert.Equal(t, MaxListLimit, NormalizeLimit(10_000))
}
