// internal/application/usecase/token_workflow_usecase.go
package usecase

/*
責任と機能:
- CreateToken / MintMore / SendToken の 3 つのワークフローを組み立てる。
- 各ワークフローは「入力検証 → 操作の組み立て → freshness 取得(できるだけ遅く) →
  署名(ローカル keypair が先、wallet が最後) → 1 回だけ submit → confirmed を待つ」の順。
- 結果は必ず workflow.Result に畳み込み、呼び出し元に error を投げない。
- 外部依存（RPC / wallet / lock）は Port(interface) に閉じ込める。
*/

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/workflow"
)

// ============================================================
// Ports
// ============================================================

// LedgerClient is the minimal RPC surface the workflows need.
type LedgerClient interface {
	// GetMinimumBalance returns the rent-exempt lamports for an account of size bytes.
	GetMinimumBalance(ctx context.Context, size uint64) (uint64, error)

	// GetFreshnessToken returns a recent blockhash.
	GetFreshnessToken(ctx context.Context) (string, error)

	// Submit sends a fully signed transaction once and returns its signature.
	Submit(ctx context.Context, tx types.Transaction) (string, error)

	// AwaitConfirmation polls until signature reaches level, fails, or ctx/timeout expires.
	// It never resubmits.
	AwaitConfirmation(ctx context.Context, signature string, level ledger.Commitment) (ledger.Confirmation, error)

	// ResolveAccount reports whether an account exists at addr.
	ResolveAccount(ctx context.Context, addr common.PublicKey) (bool, error)

	// ResolveMintDecimals reads the decimals of a mint.
	ResolveMintDecimals(ctx context.Context, mint common.PublicKey) (uint8, error)
}

// Locker serializes workflows that touch the same key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// ProgressFunc receives human-readable progress messages while a workflow runs.
type ProgressFunc func(msg string)

// ============================================================
// Inputs
// ============================================================

type CreateTokenInput struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Decimals      int    `json:"decimals"`
	InitialSupply string `json:"initialSupply"`
}

type MintMoreInput struct {
	MintAddress string `json:"mintAddress"`
	Amount      string `json:"amount"`
}

type SendTokenInput struct {
	MintAddress string `json:"mintAddress"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
}

// ============================================================
// Usecase
// ============================================================

type TokenWorkflowUsecase struct {
	ledger LedgerClient
	wallet wallet.Wallet
	locker Locker

	commitment        ledger.Commitment
	stagedCreate      bool
	autoCreateHolding bool

	withMetadata bool
	metadataURI  string

	newKeypair func() types.Account
}

type WorkflowOption func(*TokenWorkflowUsecase)

// WithCommitment sets the confirmation level the workflows wait for.
func WithCommitment(c ledger.Commitment) WorkflowOption {
	return func(u *TokenWorkflowUsecase) {
		if c != "" {
			u.commitment = c
		}
	}
}

// WithStagedCreate splits CreateToken into a mint batch and a holding/supply batch.
// A failure of the second batch yields a partial success.
func WithStagedCreate(on bool) WorkflowOption {
	return func(u *TokenWorkflowUsecase) { u.stagedCreate = on }
}

// WithHoldingAutoCreate controls whether MintMore creates the caller's missing holding
// account. When off, MintMore fails with no_token_account instead.
func WithHoldingAutoCreate(on bool) WorkflowOption {
	return func(u *TokenWorkflowUsecase) { u.autoCreateHolding = on }
}

// WithOnChainMetadata adds a Metaplex metadata account carrying the token's name and
// symbol to the mint batch of CreateToken.
func WithOnChainMetadata(on bool, uri string) WorkflowOption {
	return func(u *TokenWorkflowUsecase) {
		u.withMetadata = on
		u.metadataURI = strings.TrimSpace(uri)
	}
}

// WithLocker holds a per-mint lock around MintMore and SendToken.
func WithLocker(l Locker) WorkflowOption {
	return func(u *TokenWorkflowUsecase) { u.locker = l }
}

// WithKeypairGenerator replaces the mint keypair source.
func WithKeypairGenerator(gen func() types.Account) WorkflowOption {
	return func(u *TokenWorkflowUsecase) {
		if gen != nil {
			u.newKeypair = gen
		}
	}
}

func NewTokenWorkflowUsecase(lc LedgerClient, w wallet.Wallet, opts ...WorkflowOption) *TokenWorkflowUsecase {
	u := &TokenWorkflowUsecase{
		ledger:            lc,
		wallet:            w,
		commitment:        ledger.CommitmentConfirmed,
		autoCreateHolding: true,
		newKeypair:        types.NewAccount,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

var ErrWorkflowNotConfigured = errors.New("token_workflow: ledger client not configured")

// MintLockKey is the lock key shared by every workflow touching mint.
func MintLockKey(mint string) string {
	return "mint:" + strings.TrimSpace(mint)
}

// ============================================================
// CreateToken
// ============================================================

// CreateToken does:
// 1) wallet identity / decimals / supply を検証（ネットワーク呼び出しなし）
// 2) mint keypair を生成し rent-exempt lamports を取得
// 3) [create mint account, initialize mint, create holding account, (mint initial supply)]
// 4) mint keypair → wallet の順で署名し submit、confirmed を待つ
//
// staged の場合は 3) を 2 バッチに分け、2 バッチ目の失敗は PartialSuccess になる。
func (u *TokenWorkflowUsecase) CreateToken(ctx context.Context, in CreateTokenInput, progress ProgressFunc) (res workflow.Result) {
	act := workflow.ActionCreateToken
	report := progressOrNop(progress)
	defer recoverInto(act, &res)

	signer, err := wallet.NewSigner(ctx, u.wallet)
	if err != nil {
		return u.fail(act, err)
	}
	if u.ledger == nil {
		return u.fail(act, ErrWorkflowNotConfigured)
	}

	decimals, err := ledger.ValidateDecimals(in.Decimals)
	if err != nil {
		return u.fail(act, err)
	}
	supplyText := strings.TrimSpace(in.InitialSupply)
	if supplyText == "" {
		supplyText = "0"
	}
	if err := ledger.ValidateAmount(supplyText, true); err != nil {
		return u.fail(act, err)
	}
	supply, err := ledger.ToBaseUnits(supplyText, decimals)
	if err != nil {
		return u.fail(act, err)
	}

	owner := signer.PublicKey()
	mint := u.newKeypair()
	mintAddr := mint.PublicKey.ToBase58()

	var mdOp *types.Instruction
	if u.withMetadata {
		op, err := ledger.CreateMetadataOp(mint.PublicKey, owner, strings.TrimSpace(in.Name), strings.TrimSpace(in.Symbol), u.metadataURI)
		if err != nil {
			return u.fail(act, err)
		}
		mdOp = &op
	}

	log.Printf("[token_workflow] create start owner=%s mint=%s name=%q symbol=%q decimals=%d supply=%d staged=%t",
		ledger.MaskShort(owner.ToBase58()), ledger.MaskShort(mintAddr), in.Name, in.Symbol, decimals, supply, u.stagedCreate)

	report("Creating your token mint account...")

	rent, err := u.ledger.GetMinimumBalance(ctx, ledger.MintAccountSize)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: rent exemption: %v", workflow.ErrSubmission, err))
	}

	holding, err := ledger.HoldingAddress(owner, mint.PublicKey)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: derive holding account: %v", workflow.ErrSubmission, err))
	}

	mintOps := []types.Instruction{
		ledger.CreateMintAccountOp(owner, mint.PublicKey, rent),
		ledger.InitializeMintOp(mint.PublicKey, owner, decimals),
	}
	if mdOp != nil {
		mintOps = append(mintOps, *mdOp)
	}
	holdingOps := []types.Instruction{
		ledger.CreateHoldingAccountOp(owner, owner, mint.PublicKey, holding),
	}
	if supply > 0 {
		holdingOps = append(holdingOps, ledger.MintToOp(mint.PublicKey, holding, owner, supply))
	}

	mintSigner := wallet.NewKeypairSigner(mint)

	if !u.stagedCreate {
		b := ledger.NewBatch(mintOps...)
		_ = b.Add(holdingOps...)

		sig, err := u.submit(ctx, b, owner, report, mintSigner, signer)
		if err != nil {
			return u.fail(act, err)
		}
		log.Printf("[token_workflow] create ok mint=%s sig=%s", ledger.MaskShort(mintAddr), ledger.MaskShort(sig))
		return workflow.Success(act, mintAddr, sig, fmt.Sprintf("Token %s created successfully!", displayName(in)))
	}

	// staged: mint account first
	sig, err := u.submit(ctx, ledger.NewBatch(mintOps...), owner, report, mintSigner, signer)
	if err != nil {
		return u.fail(act, err)
	}
	log.Printf("[token_workflow] create stage1 ok mint=%s sig=%s", ledger.MaskShort(mintAddr), ledger.MaskShort(sig))

	report("Creating your token account...")
	sig2, err := u.submit(ctx, ledger.NewBatch(holdingOps...), owner, report, signer)
	if err != nil {
		log.Printf("[token_workflow] WARN: create stage2 failed mint=%s err=%v", ledger.MaskShort(mintAddr), err)
		warning := "Token mint was created, but your token account or initial supply could not be set up: " + reasonText(workflow.Classify(err))
		return workflow.PartialSuccess(act, mintAddr, sig, warning,
			fmt.Sprintf("Token %s created with warnings", displayName(in)), err)
	}

	log.Printf("[token_workflow] create ok mint=%s sig=%s", ledger.MaskShort(mintAddr), ledger.MaskShort(sig2))
	return workflow.Success(act, mintAddr, sig2, fmt.Sprintf("Token %s created successfully!", displayName(in)))
}

// ============================================================
// MintMore
// ============================================================

// MintMore does:
// 1) wallet / mint address / amount 表記を検証
// 2) mint lock を取得
// 3) decimals を解決し base units に変換
// 4) holding account が無ければ先に作成（別バッチ）
// 5) mint_to を submit し confirmed を待つ
func (u *TokenWorkflowUsecase) MintMore(ctx context.Context, in MintMoreInput, progress ProgressFunc) (res workflow.Result) {
	act := workflow.ActionMintMore
	report := progressOrNop(progress)
	defer recoverInto(act, &res)

	signer, err := wallet.NewSigner(ctx, u.wallet)
	if err != nil {
		return u.fail(act, err)
	}
	mint, err := ledger.ParseAddress(in.MintAddress)
	if err != nil {
		return u.fail(act, err)
	}
	if err := ledger.ValidateAmount(in.Amount, false); err != nil {
		return u.fail(act, err)
	}
	if u.ledger == nil {
		return u.fail(act, ErrWorkflowNotConfigured)
	}

	unlock, err := u.lock(ctx, mint)
	if err != nil {
		return u.fail(act, err)
	}
	defer unlock()

	owner := signer.PublicKey()
	mintAddr := mint.ToBase58()

	report("Preparing to mint tokens...")

	decimals, err := u.ledger.ResolveMintDecimals(ctx, mint)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: read mint %s: %v", workflow.ErrSubmission, ledger.MaskShort(mintAddr), err))
	}
	units, err := ledger.ToBaseUnits(in.Amount, decimals)
	if err != nil {
		return u.fail(act, err)
	}
	if units == 0 {
		return u.fail(act, fmt.Errorf("%w: amount rounds to zero at %d decimals", ledger.ErrInvalidAmount, decimals))
	}

	holding, err := ledger.HoldingAddress(owner, mint)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: derive holding account: %v", workflow.ErrSubmission, err))
	}

	report("Getting your token account...")
	exists, err := u.ledger.ResolveAccount(ctx, holding)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: lookup holding account: %v", workflow.ErrSubmission, err))
	}
	if !exists {
		if !u.autoCreateHolding {
			return u.fail(act, workflow.ErrNoTokenAccount)
		}
		report("Creating your token account...")
		b := ledger.NewBatch(ledger.CreateHoldingAccountOp(owner, owner, mint, holding))
		if _, err := u.submit(ctx, b, owner, report, signer); err != nil {
			log.Printf("[token_workflow] mint: holding account create failed mint=%s err=%v", ledger.MaskShort(mintAddr), err)
			return u.fail(act, fmt.Errorf("%w: %w", workflow.ErrNoTokenAccount, err))
		}
	}

	report(fmt.Sprintf("Minting %s tokens...", strings.TrimSpace(in.Amount)))
	sig, err := u.submit(ctx, ledger.NewBatch(ledger.MintToOp(mint, holding, owner, units)), owner, report, signer)
	if err != nil {
		return u.fail(act, err)
	}

	log.Printf("[token_workflow] mint ok mint=%s units=%d sig=%s", ledger.MaskShort(mintAddr), units, ledger.MaskShort(sig))
	return workflow.Success(act, sig, sig, fmt.Sprintf("Successfully minted %s tokens!", strings.TrimSpace(in.Amount)))
}

// ============================================================
// SendToken
// ============================================================

// SendToken does:
// 1) wallet / recipient / mint / amount を検証（recipient はネットワーク呼び出し前に検証）
// 2) mint lock を取得
// 3) 送信元 holding account が無ければ no_token_account
// 4) 受取側 holding account が無ければ同一バッチの先頭で作成
// 5) transfer を submit し confirmed を待つ
func (u *TokenWorkflowUsecase) SendToken(ctx context.Context, in SendTokenInput, progress ProgressFunc) (res workflow.Result) {
	act := workflow.ActionSendToken
	report := progressOrNop(progress)
	defer recoverInto(act, &res)

	signer, err := wallet.NewSigner(ctx, u.wallet)
	if err != nil {
		return u.fail(act, err)
	}
	recipient, err := ledger.ParseAddress(in.Recipient)
	if err != nil {
		return u.fail(act, err)
	}
	mint, err := ledger.ParseAddress(in.MintAddress)
	if err != nil {
		return u.fail(act, err)
	}
	if err := ledger.ValidateAmount(in.Amount, false); err != nil {
		return u.fail(act, err)
	}
	if u.ledger == nil {
		return u.fail(act, ErrWorkflowNotConfigured)
	}

	unlock, err := u.lock(ctx, mint)
	if err != nil {
		return u.fail(act, err)
	}
	defer unlock()

	owner := signer.PublicKey()
	mintAddr := mint.ToBase58()

	report("Preparing to send tokens...")

	decimals, err := u.ledger.ResolveMintDecimals(ctx, mint)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: read mint %s: %v", workflow.ErrSubmission, ledger.MaskShort(mintAddr), err))
	}
	units, err := ledger.ToBaseUnits(in.Amount, decimals)
	if err != nil {
		return u.fail(act, err)
	}
	if units == 0 {
		return u.fail(act, fmt.Errorf("%w: amount rounds to zero at %d decimals", ledger.ErrInvalidAmount, decimals))
	}

	from, err := ledger.HoldingAddress(owner, mint)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: derive holding account: %v", workflow.ErrSubmission, err))
	}
	to, err := ledger.HoldingAddress(recipient, mint)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: derive recipient holding account: %v", workflow.ErrSubmission, err))
	}

	report("Getting your token account...")
	fromExists, err := u.ledger.ResolveAccount(ctx, from)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: lookup holding account: %v", workflow.ErrSubmission, err))
	}
	if !fromExists {
		return u.fail(act, workflow.ErrNoTokenAccount)
	}

	report("Getting recipient's token account...")
	toExists, err := u.ledger.ResolveAccount(ctx, to)
	if err != nil {
		return u.fail(act, fmt.Errorf("%w: lookup recipient holding account: %v", workflow.ErrSubmission, err))
	}

	b := ledger.NewBatch()
	if !toExists {
		_ = b.Add(ledger.CreateHoldingAccountOp(owner, recipient, mint, to))
	}
	_ = b.Add(ledger.TransferOp(from, to, owner, units))

	report(fmt.Sprintf("Sending %s tokens...", strings.TrimSpace(in.Amount)))
	sig, err := u.submit(ctx, b, owner, report, signer)
	if err != nil {
		return u.fail(act, err)
	}

	log.Printf("[token_workflow] send ok mint=%s to=%s units=%d createdRecipientAccount=%t sig=%s",
		ledger.MaskShort(mintAddr), ledger.MaskShort(recipient.ToBase58()), units, !toExists, ledger.MaskShort(sig))
	return workflow.Success(act, sig, sig, fmt.Sprintf("Successfully sent %s tokens!", strings.TrimSpace(in.Amount)))
}

// ============================================================
// helpers
// ============================================================

// submit seals b with a fresh blockhash, signs in order, sends once and waits.
func (u *TokenWorkflowUsecase) submit(
	ctx context.Context,
	b *ledger.Batch,
	feePayer common.PublicKey,
	report ProgressFunc,
	signers ...wallet.Signer,
) (string, error) {
	blockhash, err := u.ledger.GetFreshnessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: latest blockhash: %v", workflow.ErrSubmission, err)
	}
	if err := b.Seal(feePayer, blockhash); err != nil {
		return "", fmt.Errorf("%w: seal: %v", workflow.ErrSubmission, err)
	}

	report("Please approve the transaction in your wallet...")
	if err := wallet.SignInOrder(ctx, b, signers...); err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return "", err
		}
		return "", fmt.Errorf("%w: sign: %w", workflow.ErrSubmission, err)
	}

	tx, err := b.Transaction()
	if err != nil {
		return "", fmt.Errorf("%w: %v", workflow.ErrSubmission, err)
	}

	report("Sending transaction...")
	sig, err := u.ledger.Submit(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", workflow.ErrSubmission, err)
	}

	report("Confirming transaction...")
	conf, err := u.ledger.AwaitConfirmation(ctx, sig, u.commitment)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", workflow.ErrConfirmation, ledger.MaskShort(sig), err)
	}
	if conf.Failed() {
		return "", fmt.Errorf("%w: %s: %s", workflow.ErrConfirmation, ledger.MaskShort(sig), conf.Err)
	}
	return sig, nil
}

func (u *TokenWorkflowUsecase) lock(ctx context.Context, mint common.PublicKey) (func(), error) {
	if u.locker == nil {
		return func() {}, nil
	}
	key := MintLockKey(mint.ToBase58())
	unlock, err := u.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", workflow.ErrSubmission, ledger.MaskShort(mint.ToBase58()), err)
	}
	if unlock == nil {
		unlock = func() {}
	}
	return unlock, nil
}

func (u *TokenWorkflowUsecase) fail(act workflow.Action, err error) workflow.Result {
	kind := workflow.Classify(err)
	log.Printf("[token_workflow] %s failed kind=%s err=%v", act, kind, err)
	return workflow.Failure(act, err, failureMessage(act, kind))
}

func recoverInto(act workflow.Action, res *workflow.Result) {
	if rec := recover(); rec != nil {
		log.Printf("[token_workflow] PANIC in %s: %v", act, rec)
		err := fmt.Errorf("%w: unexpected error: %v", workflow.ErrSubmission, rec)
		*res = workflow.Failure(act, err, failureMessage(act, workflow.KindSubmissionFailure))
	}
}

func progressOrNop(p ProgressFunc) ProgressFunc {
	if p == nil {
		return func(string) {}
	}
	return p
}

func displayName(in CreateTokenInput) string {
	if s := strings.TrimSpace(in.Symbol); s != "" {
		return s
	}
	if n := strings.TrimSpace(in.Name); n != "" {
		return n
	}
	return "token"
}

// failureMessage is the user-facing text for a failed run. Raw diagnostics stay in logs.
func failureMessage(act workflow.Action, kind workflow.ErrorKind) string {
	switch kind {
	case workflow.KindNotConnected:
		return "Wallet not connected"
	case workflow.KindInvalidAddress:
		if act == workflow.ActionSendToken {
			return "Invalid recipient or mint address"
		}
		return "Invalid mint address"
	case workflow.KindInvalidInput:
		if act == workflow.ActionCreateToken {
			return "Invalid token details"
		}
		return "Invalid amount"
	case workflow.KindNoTokenAccount:
		return "Token account not found"
	case workflow.KindUserRejected:
		return "Transaction was rejected in your wallet"
	case workflow.KindConfirmationFailure:
		return "Transaction was sent but could not be confirmed"
	}
	switch act {
	case workflow.ActionCreateToken:
		return "Token creation failed"
	case workflow.ActionMintMore:
		return "Failed to mint tokens"
	default:
		return "Failed to send tokens"
	}
}

func reasonText(kind workflow.ErrorKind) string {
	switch kind {
	case workflow.KindUserRejected:
		return "the request was rejected in your wallet"
	case workflow.KindConfirmationFailure:
		return "the transaction could not be confirmed"
	default:
		return "the transaction could not be submitted"
	}
}
