// internal/infra/solana/ledger_client.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/cenkalti/backoff/v4"

	"github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
)

var (
	ErrLedgerNotConfigured = errors.New("ledger_client: not configured")
	ErrConfirmationTimeout = errors.New("ledger_client: confirmation timed out")
	ErrNotAMint            = errors.New("ledger_client: account is not an SPL mint")
	ErrSignatureNotSeen    = errors.New("ledger_client: signature not yet seen")
)

const DefaultConfirmTimeout = 90 * time.Second

// LedgerClientSolana talks to a Solana RPC node through the blocto client for typed calls
// and JSONRPCClient for signature status polling.
type LedgerClientSolana struct {
	RPC  *client.Client
	JSON *JSONRPCClient

	ConfirmTimeout time.Duration
	PollInitial    time.Duration
	PollMax        time.Duration
}

var (
	_ usecase.LedgerClient   = (*LedgerClientSolana)(nil)
	_ usecase.BalanceReader  = (*LedgerClientSolana)(nil)
	_ usecase.MetadataReader = (*LedgerClientSolana)(nil)
)

// NewLedgerClientSolana constructs the client. An empty rpcURL uses devnet.
func NewLedgerClientSolana(rpcURL string, jsonRPC *JSONRPCClient, confirmTimeout time.Duration) *LedgerClientSolana {
	u := strings.TrimSpace(rpcURL)
	if u == "" {
		u = DevnetEndpoint
	}
	if jsonRPC == nil {
		jsonRPC = NewJSONRPCClient(u, 0)
	}
	if confirmTimeout <= 0 {
		confirmTimeout = DefaultConfirmTimeout
	}
	return &LedgerClientSolana{
		RPC:            client.NewClient(u),
		JSON:           jsonRPC,
		ConfirmTimeout: confirmTimeout,
		PollInitial:    500 * time.Millisecond,
		PollMax:        4 * time.Second,
	}
}

func (l *LedgerClientSolana) ready() error {
	if l == nil || l.RPC == nil {
		return ErrLedgerNotConfigured
	}
	return nil
}

func (l *LedgerClientSolana) GetMinimumBalance(ctx context.Context, size uint64) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	lamports, err := l.RPC.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return 0, fmt.Errorf("ledger_client: GetMinimumBalanceForRentExemption: %w", err)
	}
	return lamports, nil
}

func (l *LedgerClientSolana) GetFreshnessToken(ctx context.Context) (string, error) {
	if err := l.ready(); err != nil {
		return "", err
	}
	latest, err := l.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("ledger_client: GetLatestBlockhash: %w", err)
	}
	return latest.Blockhash, nil
}

func (l *LedgerClientSolana) Submit(ctx context.Context, tx types.Transaction) (string, error) {
	if err := l.ready(); err != nil {
		return "", err
	}
	sig, err := l.RPC.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("ledger_client: SendTransaction: %w", err)
	}
	log.Printf("[ledger_client] submitted tx=%s", ledger.MaskShort(sig))
	return sig, nil
}

// AwaitConfirmation polls getSignatureStatuses with exponential backoff until the status
// reaches level or reports an execution error. It never resubmits the transaction.
func (l *LedgerClientSolana) AwaitConfirmation(ctx context.Context, signature string, level ledger.Commitment) (ledger.Confirmation, error) {
	if l == nil || l.JSON == nil {
		return ledger.Confirmation{}, ErrLedgerNotConfigured
	}
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return ledger.Confirmation{}, fmt.Errorf("ledger_client: signature is empty")
	}
	if level == "" {
		level = ledger.CommitmentConfirmed
	}

	timeout := l.ConfirmTimeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.PollInitial
	bo.MaxInterval = l.PollMax
	bo.MaxElapsedTime = 0 // bounded by pollCtx

	var out ledger.Confirmation
	op := func() error {
		statuses, err := l.JSON.GetSignatureStatuses(pollCtx, []string{sig})
		if err != nil {
			return err
		}
		if len(statuses) == 0 || statuses[0] == nil {
			return ErrSignatureNotSeen
		}
		st := statuses[0]
		reached := ledger.Commitment(st.ConfirmationStatus)
		if st.Failed() {
			out = ledger.Confirmation{Signature: sig, Slot: st.Slot, Status: reached, Err: strings.TrimSpace(string(st.Err))}
			return nil
		}
		if !reached.Reaches(level) {
			return fmt.Errorf("ledger_client: status %q below %q", st.ConfirmationStatus, level)
		}
		out = ledger.Confirmation{Signature: sig, Slot: st.Slot, Status: reached}
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, pollCtx)); err != nil {
		if ctx.Err() != nil {
			return ledger.Confirmation{}, fmt.Errorf("ledger_client: await %s: %w", ledger.MaskShort(sig), ctx.Err())
		}
		if pollCtx.Err() != nil {
			return ledger.Confirmation{}, fmt.Errorf("%w after %s: %s (last: %v)", ErrConfirmationTimeout, timeout, ledger.MaskShort(sig), err)
		}
		return ledger.Confirmation{}, fmt.Errorf("ledger_client: await %s: %w", ledger.MaskShort(sig), err)
	}

	log.Printf("[ledger_client] confirmation tx=%s status=%s slot=%d err=%q", ledger.MaskShort(sig), out.Status, out.Slot, out.Err)
	return out, nil
}

// ResolveAccount reports whether an account exists at addr.
func (l *LedgerClientSolana) ResolveAccount(ctx context.Context, addr common.PublicKey) (bool, error) {
	if err := l.ready(); err != nil {
		return false, err
	}
	info, found, err := l.accountInfo(ctx, addr)
	if err != nil {
		return false, err
	}
	return found && (info.Lamports > 0 || len(info.Data) > 0), nil
}

// ResolveMintDecimals reads an SPL mint account.
func (l *LedgerClientSolana) ResolveMintDecimals(ctx context.Context, mint common.PublicKey) (uint8, error) {
	info, err := l.MintInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	return info.Decimals, nil
}

func (l *LedgerClientSolana) MintInfo(ctx context.Context, mint common.PublicKey) (ledger.MintInfo, error) {
	if err := l.ready(); err != nil {
		return ledger.MintInfo{}, err
	}
	info, found, err := l.accountInfo(ctx, mint)
	if err != nil {
		return ledger.MintInfo{}, err
	}
	if !found || info.Owner != common.TokenProgramID {
		return ledger.MintInfo{}, fmt.Errorf("%w: %s", ErrNotAMint, ledger.MaskShort(mint.ToBase58()))
	}
	m, err := token.MintAccountFromData(info.Data)
	if err != nil {
		return ledger.MintInfo{}, fmt.Errorf("%w: %s: %v", ErrNotAMint, ledger.MaskShort(mint.ToBase58()), err)
	}
	out := ledger.MintInfo{
		Address:       mint.ToBase58(),
		Decimals:      m.Decimals,
		Supply:        m.Supply,
		IsInitialized: m.IsInitialized,
	}
	if m.MintAuthority != nil {
		out.MintAuthority = m.MintAuthority.ToBase58()
	}
	return out, nil
}

// ========================================
// portfolio reads
// ========================================

func (l *LedgerClientSolana) GetBalance(ctx context.Context, owner common.PublicKey) (uint64, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}
	lamports, err := l.RPC.GetBalance(ctx, owner.ToBase58())
	if err != nil {
		return 0, fmt.Errorf("ledger_client: GetBalance: %w", err)
	}
	return lamports, nil
}

func (l *LedgerClientSolana) RequestAirdrop(ctx context.Context, owner common.PublicKey, lamports uint64) (string, error) {
	if err := l.ready(); err != nil {
		return "", err
	}
	sig, err := l.RPC.RequestAirdrop(ctx, owner.ToBase58(), lamports)
	if err != nil {
		return "", fmt.Errorf("ledger_client: RequestAirdrop: %w", err)
	}
	return sig, nil
}

// TokenMetadata reads the Metaplex metadata PDA of mint.
func (l *LedgerClientSolana) TokenMetadata(ctx context.Context, mint common.PublicKey) (portfolio.Metadata, bool, error) {
	if err := l.ready(); err != nil {
		return portfolio.Metadata{}, false, err
	}
	pda, err := token_metadata.GetTokenMetaPubkey(mint)
	if err != nil {
		return portfolio.Metadata{}, false, fmt.Errorf("ledger_client: GetTokenMetaPubkey: %w", err)
	}
	info, found, err := l.accountInfo(ctx, pda)
	if err != nil {
		return portfolio.Metadata{}, false, err
	}
	if !found || len(info.Data) == 0 {
		return portfolio.Metadata{}, false, nil
	}
	md, err := token_metadata.MetadataDeserialize(info.Data)
	if err != nil {
		return portfolio.Metadata{}, false, fmt.Errorf("ledger_client: MetadataDeserialize: %w", err)
	}
	return portfolio.Metadata{Name: md.Data.Name, Symbol: md.Data.Symbol}, true, nil
}

// accountInfo treats "not found" style RPC errors and an empty value as absence.
func (l *LedgerClientSolana) accountInfo(ctx context.Context, addr common.PublicKey) (client.AccountInfo, bool, error) {
	info, err := l.RPC.GetAccountInfo(ctx, addr.ToBase58())
	if err != nil {
		if isAccountNotFound(err) {
			return client.AccountInfo{}, false, nil
		}
		return client.AccountInfo{}, false, fmt.Errorf("ledger_client: GetAccountInfo %s: %w", ledger.MaskShort(addr.ToBase58()), err)
	}
	if info.Lamports == 0 && len(info.Data) == 0 && info.Owner == (common.PublicKey{}) {
		return client.AccountInfo{}, false, nil
	}
	return info, true, nil
}

// isAccountNotFound matches only the node's account-absence errors, never transport errors
// or unrelated RPC errors such as "Method not found".
func isAccountNotFound(err error) bool {
	var rpcErr *rpc.JsonRpcError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "could not find account") ||
		strings.Contains(msg, "account does not exist") ||
		strings.Contains(msg, "accountnotfound")
}
