package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/PraiseTechzw/solana-token-manager/internal/adapters/out/memory"
	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyRun(ctx context.Context, rec tadom.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func newRunFixture(t *testing.T, opts ...RunOption) (*RunUsecase, *fakeLedger, *fakeWallet) {
	t.Helper()
	lc := newFakeLedger()
	w := newFakeWallet()
	wf := NewTokenWorkflowUsecase(lc, w)
	return NewRunUsecase(wf, w, opts...), lc, w
}

func waitRun(t *testing.T, u *RunUsecase, id string) RunView {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := u.Wait(ctx, id)
	require.NoError(t, err)
	return v
}

func TestRun_CreateTokenLifecycle(t *testing.T) {
	journal := memory.NewTokenActionRepositoryMem()
	notifier := &mockNotifier{}
	notifier.On("NotifyRun", mock.Anything, mock.MatchedBy(func(r tadom.Record) bool {
		return r.Action == workflow.ActionCreateToken && r.Outcome == workflow.OutcomeSuccess
	})).Return(nil).Once()
	u, _, w := newRunFixture(t, WithJournal(journal), WithNotifier(notifier), WithRevertDelay(0))

	id := u.StartCreateToken(context.Background(), CreateTokenInput{Name: "Run", Symbol: "RUN", Decimals: 2, InitialSupply: "10"})
	require.NotEmpty(t, id)

	v := waitRun(t, u, id)
	assert.Equal(t, id, v.ID)
	assert.Equal(t, workflow.ActionCreateToken, v.Action)
	require.NotNil(t, v.Result)
	assert.Equal(t, workflow.OutcomeSuccess, v.Result.Outcome)
	assert.Equal(t, workflow.StateSuccess, v.Status.State)

	rec, err := journal.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, w.acc.PublicKey.ToBase58(), rec.Owner)
	assert.Equal(t, v.Result.Reference, rec.Mint)
	notifier.AssertExpectations(t)

	recent, err := u.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].ID)
}

func TestRun_StatusRevertsToIdle(t *testing.T) {
	u, _, _ := newRunFixture(t, WithRevertDelay(30*time.Millisecond))

	id := u.StartSendToken(context.Background(), SendTokenInput{MintAddress: "bad", Recipient: "bad", Amount: "1"})
	v := waitRun(t, u, id)
	require.NotNil(t, v.Result)
	assert.Equal(t, workflow.KindInvalidAddress, v.Result.Reason)

	assert.Eventually(t, func() bool {
		got, err := u.Get(context.Background(), id)
		return err == nil && got.Status.State == workflow.StateIdle && got.Result != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_DetachedFromCallerContext(t *testing.T) {
	u, lc, _ := newRunFixture(t, WithRevertDelay(0))
	ctx, cancel := context.WithCancel(context.Background())

	id := u.StartMintMore(ctx, MintMoreInput{MintAddress: types.NewAccount().PublicKey.ToBase58(), Amount: "1"})
	cancel()

	v := waitRun(t, u, id)
	require.NotNil(t, v.Result)
	assert.Equal(t, workflow.OutcomeSuccess, v.Result.Outcome)
	assert.Equal(t, 2, lc.count("Submit"))
}

func TestRun_GetUnknown(t *testing.T) {
	u, _, _ := newRunFixture(t)

	_, err := u.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = u.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = u.Wait(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRun_PrunedRunsServedFromJournal(t *testing.T) {
	journal := memory.NewTokenActionRepositoryMem()
	u, _, _ := newRunFixture(t, WithJournal(journal), WithRunRetention(time.Minute))

	var mu sync.Mutex
	clock := time.Now().Add(-time.Hour)
	u.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}

	id := u.StartCreateToken(context.Background(), CreateTokenInput{Symbol: "OLD", Decimals: 0})
	waitRun(t, u, id)

	mu.Lock()
	clock = time.Now()
	mu.Unlock()
	u.prune()

	u.mu.RLock()
	_, live := u.runs[id]
	u.mu.RUnlock()
	require.False(t, live)

	v, err := u.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.StateIdle, v.Status.State)
	require.NotNil(t, v.Result)
	assert.Equal(t, workflow.OutcomeSuccess, v.Result.Outcome)
}

func TestRun_SideEffectFailuresDoNotChangeResult(t *testing.T) {
	notifier := &mockNotifier{}
	notifier.On("NotifyRun", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	u, _, _ := newRunFixture(t, WithNotifier(notifier), WithRevertDelay(0))

	id := u.StartCreateToken(context.Background(), CreateTokenInput{Symbol: "N", Decimals: 0})
	v := waitRun(t, u, id)

	assert.Equal(t, workflow.OutcomeSuccess, v.Result.Outcome)
	notifier.AssertExpectations(t)
}

func TestRun_RecentRequiresWallet(t *testing.T) {
	u, _, w := newRunFixture(t, WithJournal(memory.NewTokenActionRepositoryMem()))
	w.connected = false

	_, err := u.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestRun_DrainWaitsForInFlight(t *testing.T) {
	u, _, _ := newRunFixture(t, WithRevertDelay(0))
	ids := []string{
		u.StartCreateToken(context.Background(), CreateTokenInput{Symbol: "A", Decimals: 0}),
		u.StartCreateToken(context.Background(), CreateTokenInput{Symbol: "B", Decimals: 0}),
	}
	u.Drain()

	for _, id := range ids {
		v, err := u.Get(context.Background(), id)
		require.NoError(t, err)
		assert.NotNil(t, v.Result)
	}
}

// ctxCheckingJournal records whether Save was handed a live context.
type ctxCheckingJournal struct {
	*memory.TokenActionRepositoryMem

	mu      sync.Mutex
	saveErr error
	saved   bool
}

func (j *ctxCheckingJournal) Save(ctx context.Context, r tadom.Record) error {
	j.mu.Lock()
	j.saved = true
	j.saveErr = ctx.Err()
	j.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return j.TokenActionRepositoryMem.Save(ctx, r)
}

func TestRun_TimedOutRunIsStillJournaled(t *testing.T) {
	journal := &ctxCheckingJournal{TokenActionRepositoryMem: memory.NewTokenActionRepositoryMem()}
	notifier := &mockNotifier{}
	notifier.On("NotifyRun", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	u, lc, _ := newRunFixture(t,
		WithJournal(journal),
		WithNotifier(notifier),
		WithRunTimeout(100*time.Millisecond),
		WithRevertDelay(0),
	)
	lc.blockAwait = true

	id := u.StartCreateToken(context.Background(), CreateTokenInput{Name: "Slow", Symbol: "SLW", Decimals: 0, InitialSupply: "1"})
	v := waitRun(t, u, id)
	require.NotNil(t, v.Result)
	assert.Equal(t, workflow.OutcomeFailure, v.Result.Outcome)

	journal.mu.Lock()
	assert.True(t, journal.saved)
	assert.NoError(t, journal.saveErr)
	journal.mu.Unlock()

	rec, err := journal.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeFailure, rec.Outcome)
	notifier.AssertExpectations(t)
}
