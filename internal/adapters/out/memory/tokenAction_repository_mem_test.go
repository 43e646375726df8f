package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

func rec(id, owner string, finished time.Time) tadom.Record {
	return tadom.Record{
		ID:         id,
		Action:     workflow.ActionSendToken,
		Owner:      owner,
		Outcome:    workflow.OutcomeSuccess,
		FinishedAt: finished,
	}
}

func TestTokenActionRepositoryMem(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenActionRepositoryMem()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, rec("a", "alice", base)))
	require.NoError(t, repo.Save(ctx, rec("b", "alice", base.Add(time.Minute))))
	require.NoError(t, repo.Save(ctx, rec("c", "bob", base.Add(2*time.Minute))))

	t.Run("conflict", func(t *testing.T) {
		assert.ErrorIs(t, repo.Save(ctx, rec("a", "alice", base)), tadom.ErrConflict)
		assert.ErrorIs(t, repo.Save(ctx, rec("  ", "alice", base)), tadom.ErrInvalidID)
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetByID(ctx, " b ")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Owner)

		_, err = repo.GetByID(ctx, "zzz")
		assert.ErrorIs(t, err, tadom.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		out, err := repo.ListByOwner(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "b", out[0].ID)
		assert.Equal(t, "a", out[1].ID)

		out, err = repo.ListByOwner(ctx, "", 10)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("limit", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Save(ctx, rec(fmt.Sprintf("x%d", i), "carol", base.Add(time.Duration(i)*time.Second))))
		}
		out, err := repo.ListByOwner(ctx, "carol", 3)
		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.Equal(t, "x4", out[0].ID)
	})
}
