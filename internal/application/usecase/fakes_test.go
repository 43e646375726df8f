package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/wallet"
)

// ============================================================
// fake ledger client
// ============================================================

type fakeLedger struct {
	mu sync.Mutex

	rent        uint64
	decimals    uint8
	decimalsErr error
	accounts    map[common.PublicKey]bool

	freshnessErr error
	submitErrs   map[int]error  // by submit index (0-based)
	confirmErrs  map[int]error  // by submit index
	execErrs     map[int]string // confirmation.Err by submit index
	panicOn      string
	blockAwait   bool // AwaitConfirmation waits for ctx to end

	calls     []string
	submitted []types.Transaction
	awaited   []ledger.Commitment
}

var _ LedgerClient = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		rent:        1_461_600,
		decimals:    9,
		accounts:    make(map[common.PublicKey]bool),
		submitErrs:  make(map[int]error),
		confirmErrs: make(map[int]error),
		execErrs:    make(map[int]string),
	}
}

func (f *fakeLedger) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.panicOn == name {
		panic("boom: " + name)
	}
}

func (f *fakeLedger) GetMinimumBalance(_ context.Context, _ uint64) (uint64, error) {
	f.record("GetMinimumBalance")
	return f.rent, nil
}

func (f *fakeLedger) GetFreshnessToken(context.Context) (string, error) {
	f.record("GetFreshnessToken")
	if f.freshnessErr != nil {
		return "", f.freshnessErr
	}
	return types.NewAccount().PublicKey.ToBase58(), nil
}

func (f *fakeLedger) Submit(_ context.Context, tx types.Transaction) (string, error) {
	f.record("Submit")
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.submitted)
	f.submitted = append(f.submitted, tx)
	if err := f.submitErrs[idx]; err != nil {
		return "", err
	}
	return fmt.Sprintf("sig-%d", idx), nil
}

func (f *fakeLedger) AwaitConfirmation(ctx context.Context, sig string, level ledger.Commitment) (ledger.Confirmation, error) {
	f.record("AwaitConfirmation")
	f.mu.Lock()
	block := f.blockAwait
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return ledger.Confirmation{}, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.awaited = append(f.awaited, level)

	var idx int
	if _, err := fmt.Sscanf(sig, "sig-%d", &idx); err != nil {
		return ledger.Confirmation{}, errors.New("unknown signature")
	}
	if err := f.confirmErrs[idx]; err != nil {
		return ledger.Confirmation{}, err
	}
	return ledger.Confirmation{Signature: sig, Slot: 100, Status: level, Err: f.execErrs[idx]}, nil
}

func (f *fakeLedger) ResolveAccount(_ context.Context, addr common.PublicKey) (bool, error) {
	f.record("ResolveAccount")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[addr], nil
}

func (f *fakeLedger) ResolveMintDecimals(context.Context, common.PublicKey) (uint8, error) {
	f.record("ResolveMintDecimals")
	if f.decimalsErr != nil {
		return 0, f.decimalsErr
	}
	return f.decimals, nil
}

func (f *fakeLedger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLedger) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeLedger) setAccount(addr common.PublicKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = true
}

// kindsOf decodes the operation kinds of a compiled transaction.
func kindsOf(tx types.Transaction) []ledger.OperationKind {
	out := make([]ledger.OperationKind, 0, len(tx.Message.Instructions))
	for _, ci := range tx.Message.Instructions {
		out = append(out, ledger.KindOf(types.Instruction{
			ProgramID: tx.Message.Accounts[ci.ProgramIDIndex],
			Data:      ci.Data,
		}))
	}
	return out
}

// amountOf returns the base units of the first MintTo/Transfer in tx.
func amountOf(tx types.Transaction) (uint64, bool) {
	for _, ci := range tx.Message.Instructions {
		op := types.Instruction{ProgramID: tx.Message.Accounts[ci.ProgramIDIndex], Data: ci.Data}
		if amt, ok := ledger.TokenAmount(op); ok {
			return amt, true
		}
	}
	return 0, false
}

// ============================================================
// fake wallet
// ============================================================

type fakeWallet struct {
	mu sync.Mutex

	acc       types.Account
	connected bool
	reject    bool

	// expectSignedBefore lists keys that must already have signed when the wallet signs.
	expectSignedBefore []common.PublicKey
	orderViolations    int
	signed             int
}

var _ wallet.Wallet = (*fakeWallet)(nil)

func newFakeWallet() *fakeWallet {
	return &fakeWallet{acc: types.NewAccount(), connected: true}
}

func (w *fakeWallet) Identity(context.Context) (common.PublicKey, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return common.PublicKey{}, false
	}
	return w.acc.PublicKey, true
}

func (w *fakeWallet) SignBatch(_ context.Context, b *ledger.Batch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reject {
		return wallet.ErrUserRejected
	}
	for _, k := range w.expectSignedBefore {
		if !b.SignedBy(k) {
			w.orderViolations++
		}
	}
	w.signed++
	return b.SignWith(w.acc)
}

// ============================================================
// fake locker
// ============================================================

type fakeLocker struct {
	mu       sync.Mutex
	keys     []string
	held     int
	released int
	err      error
}

func (l *fakeLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	l.held++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}

// ============================================================
// fake portfolio readers
// ============================================================

type fakeHoldings struct {
	holdings []portfolio.Holding
	err      error
}

func (f *fakeHoldings) ListHoldings(context.Context, common.PublicKey) ([]portfolio.Holding, error) {
	return f.holdings, f.err
}

type fakeMetadata struct {
	byMint map[string]portfolio.Metadata
	errFor map[string]error
}

func (f *fakeMetadata) TokenMetadata(_ context.Context, mint common.PublicKey) (portfolio.Metadata, bool, error) {
	k := mint.ToBase58()
	if err := f.errFor[k]; err != nil {
		return portfolio.Metadata{}, false, err
	}
	md, ok := f.byMint[k]
	return md, ok, nil
}

type fakeHistory struct {
	sigs   []portfolio.SignatureInfo
	txs    map[string]*portfolio.ParsedTx
	errFor map[string]error
	limit  int
}

func (f *fakeHistory) RecentSignatures(_ context.Context, _ common.PublicKey, limit int) ([]portfolio.SignatureInfo, error) {
	f.limit = limit
	if len(f.sigs) > limit {
		return f.sigs[:limit], nil
	}
	return f.sigs, nil
}

func (f *fakeHistory) ParsedTransaction(_ context.Context, sig string) (*portfolio.ParsedTx, error) {
	if err := f.errFor[sig]; err != nil {
		return nil, err
	}
	return f.txs[sig], nil
}

type fakeBalances struct {
	lamports   uint64
	airdropErr error
	airdropped uint64
	airdropSig string
}

func (f *fakeBalances) GetBalance(context.Context, common.PublicKey) (uint64, error) {
	return f.lamports, nil
}

func (f *fakeBalances) RequestAirdrop(_ context.Context, _ common.PublicKey, lamports uint64) (string, error) {
	if f.airdropErr != nil {
		return "", f.airdropErr
	}
	f.airdropped = lamports
	return f.airdropSig, nil
}
