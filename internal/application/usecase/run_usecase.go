// internal/application/usecase/run_usecase.go
package usecase

/*
責任と機能:
- HTTP などの呼び出し元からワークフローを開始し、runId を即座に返す。
- ワークフロー本体はリクエストから切り離して実行する（キャンセル不可）。
- 実行中の Status は run ごとの Tracker が保持し、GET /runs/{id} で参照できる。
- 終了した Result は journal（任意）に保存し、Notifier（任意）で通知する。
*/

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	tadom "github.com/PraiseTechzw/solana-token-manager/internal/domain/tokenAction"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

// Notifier is told about every finished run.
type Notifier interface {
	NotifyRun(ctx context.Context, rec tadom.Record) error
}

var ErrRunNotFound = errors.New("run_uc: run not found")

const (
	DefaultRunTimeout   = 3 * time.Minute
	DefaultRunRetention = time.Hour

	recordTimeout = 10 * time.Second
)

// RunView is the externally visible state of a run.
type RunView struct {
	ID        string           `json:"id"`
	Action    workflow.Action  `json:"action"`
	Status    workflow.Status  `json:"status"`
	Result    *workflow.Result `json:"result,omitempty"`
	StartedAt time.Time        `json:"startedAt"`
}

type runEntry struct {
	id        string
	action    workflow.Action
	owner     string
	mint      string
	startedAt time.Time
	tracker   *workflow.Tracker
	done      chan struct{}
}

type RunUsecase struct {
	workflows *TokenWorkflowUsecase
	wallet    wallet.Wallet
	journal   tadom.RepositoryPort
	notifier  Notifier

	revertDelay time.Duration
	runTimeout  time.Duration
	retention   time.Duration

	mu   sync.RWMutex
	runs map[string]*runEntry
	wg   sync.WaitGroup

	newID func() string
	now   func() time.Time
}

type RunOption func(*RunUsecase)

func WithJournal(repo tadom.RepositoryPort) RunOption {
	return func(u *RunUsecase) { u.journal = repo }
}

func WithNotifier(n Notifier) RunOption {
	return func(u *RunUsecase) { u.notifier = n }
}

// WithRevertDelay sets how long a terminal status stays visible before reverting to idle.
func WithRevertDelay(d time.Duration) RunOption {
	return func(u *RunUsecase) { u.revertDelay = d }
}

// WithRunTimeout bounds a detached run as a whole.
func WithRunTimeout(d time.Duration) RunOption {
	return func(u *RunUsecase) {
		if d > 0 {
			u.runTimeout = d
		}
	}
}

func WithRunRetention(d time.Duration) RunOption {
	return func(u *RunUsecase) {
		if d > 0 {
			u.retention = d
		}
	}
}

func NewRunUsecase(wf *TokenWorkflowUsecase, w wallet.Wallet, opts ...RunOption) *RunUsecase {
	u := &RunUsecase{
		workflows:   wf,
		wallet:      w,
		revertDelay: workflow.DefaultRevertDelay,
		runTimeout:  DefaultRunTimeout,
		retention:   DefaultRunRetention,
		runs:        make(map[string]*runEntry),
		newID:       func() string { return uuid.NewString() },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ============================================================
// Start
// ============================================================

func (u *RunUsecase) StartCreateToken(ctx context.Context, in CreateTokenInput) string {
	return u.start(ctx, workflow.ActionCreateToken, "", "Creating token...",
		func(ctx context.Context, p ProgressFunc) workflow.Result {
			return u.workflows.CreateToken(ctx, in, p)
		})
}

func (u *RunUsecase) StartMintMore(ctx context.Context, in MintMoreInput) string {
	return u.start(ctx, workflow.ActionMintMore, in.MintAddress, "Minting tokens...",
		func(ctx context.Context, p ProgressFunc) workflow.Result {
			return u.workflows.MintMore(ctx, in, p)
		})
}

func (u *RunUsecase) StartSendToken(ctx context.Context, in SendTokenInput) string {
	return u.start(ctx, workflow.ActionSendToken, in.MintAddress, "Sending tokens...",
		func(ctx context.Context, p ProgressFunc) workflow.Result {
			return u.workflows.SendToken(ctx, in, p)
		})
}

func (u *RunUsecase) start(
	ctx context.Context,
	act workflow.Action,
	mint string,
	beginMsg string,
	run func(context.Context, ProgressFunc) workflow.Result,
) string {
	u.prune()

	id := u.newID()
	e := &runEntry{
		id:        id,
		action:    act,
		owner:     u.ownerAddress(ctx),
		mint:      strings.TrimSpace(mint),
		startedAt: u.now().UTC(),
		tracker:   workflow.NewTracker(u.revertDelay, nil),
		done:      make(chan struct{}),
	}
	e.tracker.Begin(beginMsg)

	u.mu.Lock()
	u.runs[id] = e
	u.mu.Unlock()

	log.Printf("[run_uc] start id=%s action=%s owner=%s", id, act, ledger.MaskShort(e.owner))

	// detached from the caller: an in-flight workflow is never cancelled
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.runTimeout)
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer close(e.done)
		defer cancel()

		res := run(runCtx, e.tracker.Progress)
		e.tracker.Finish(res)

		log.Printf("[run_uc] finish id=%s action=%s outcome=%s reason=%s", id, act, res.Outcome, res.Reason)
		// run timeout を過ぎても結果は記録する
		recCtx, recCancel := context.WithTimeout(context.WithoutCancel(runCtx), recordTimeout)
		defer recCancel()
		u.record(recCtx, e, res)
	}()

	return id
}

func (u *RunUsecase) record(ctx context.Context, e *runEntry, res workflow.Result) {
	if u.journal == nil && u.notifier == nil {
		return
	}
	rec, err := tadom.FromResult(e.id, e.owner, e.mint, e.startedAt, res)
	if err != nil {
		log.Printf("[run_uc] WARN: build record failed id=%s err=%v", e.id, err)
		return
	}
	if u.journal != nil {
		if err := u.journal.Save(ctx, rec); err != nil {
			log.Printf("[run_uc] WARN: journal save failed id=%s err=%v", e.id, err)
		}
	}
	if u.notifier != nil {
		if err := u.notifier.NotifyRun(ctx, rec); err != nil {
			log.Printf("[run_uc] WARN: notify failed id=%s err=%v", e.id, err)
		}
	}
}

func (u *RunUsecase) ownerAddress(ctx context.Context) string {
	if u.wallet == nil {
		return ""
	}
	pub, ok := u.wallet.Identity(ctx)
	if !ok {
		return ""
	}
	return pub.ToBase58()
}

// ============================================================
// Query
// ============================================================

// Get returns the live view of a run. Runs that left memory are served from the journal.
func (u *RunUsecase) Get(ctx context.Context, id string) (RunView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RunView{}, ErrRunNotFound
	}

	u.mu.RLock()
	e, ok := u.runs[id]
	u.mu.RUnlock()
	if ok {
		v := RunView{
			ID:        e.id,
			Action:    e.action,
			Status:    e.tracker.Status(),
			StartedAt: e.startedAt,
		}
		if r, done := e.tracker.Result(); done {
			v.Result = &r
		}
		return v, nil
	}

	if u.journal == nil {
		return RunView{}, ErrRunNotFound
	}
	rec, err := u.journal.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, tadom.ErrNotFound) {
			return RunView{}, ErrRunNotFound
		}
		return RunView{}, fmt.Errorf("run_uc: journal lookup id=%s: %w", id, err)
	}
	res := resultFromRecord(rec)
	return RunView{
		ID:        rec.ID,
		Action:    rec.Action,
		Status:    workflow.Status{State: workflow.StateIdle},
		Result:    &res,
		StartedAt: rec.StartedAt,
	}, nil
}

// Recent lists journaled runs of the connected wallet, newest first.
func (u *RunUsecase) Recent(ctx context.Context, limit int) ([]tadom.Record, error) {
	if u.journal == nil {
		return []tadom.Record{}, nil
	}
	owner := u.ownerAddress(ctx)
	if owner == "" {
		return nil, wallet.ErrNotConnected
	}
	return u.journal.ListByOwner(ctx, owner, tadom.NormalizeLimit(limit))
}

// Wait blocks until the run id finishes or ctx is done.
func (u *RunUsecase) Wait(ctx context.Context, id string) (RunView, error) {
	u.mu.RLock()
	e, ok := u.runs[id]
	u.mu.RUnlock()
	if !ok {
		return RunView{}, ErrRunNotFound
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return RunView{}, ctx.Err()
	}
	return u.Get(ctx, id)
}

// Drain waits for every in-flight run, e.g. on shutdown.
func (u *RunUsecase) Drain() {
	u.wg.Wait()
}

func (u *RunUsecase) prune() {
	cutoff := u.now().Add(-u.retention)
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, e := range u.runs {
		select {
		case <-e.done:
			if e.startedAt.Before(cutoff) {
				delete(u.runs, id)
			}
		default:
		}
	}
}

func resultFromRecord(rec tadom.Record) workflow.Result {
	return workflow.Result{
		Action:    rec.Action,
		Outcome:   rec.Outcome,
		Reference: rec.Reference,
		Signature: rec.Signature,
		Warning:   rec.Warning,
		Reason:    rec.Reason,
		Message:   rec.Message,
		At:        rec.FinishedAt,
	}
}
