package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
)

// rpcStub answers JSON-RPC calls with the raw result registered for their method.
type rpcStub struct {
	results map[string]func(call int) string
	calls   map[string]*atomic.Int32
}

func newRPCStub(t *testing.T, results map[string]func(call int) string) *httptest.Server {
	t.Helper()
	s := &rpcStub{results: results, calls: map[string]*atomic.Int32{}}
	for m := range results {
		s.calls[m] = &atomic.Int32{}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fn, ok := s.results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
			return
		}
		n := int(s.calls[req.Method].Add(1))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + fn(n) + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fixed(result string) func(int) string {
	return func(int) string { return result }
}

func TestJSONRPCClient_Error(t *testing.T) {
	srv := newRPCStub(t, map[string]func(int) string{})
	c := NewJSONRPCClient(srv.URL, 0)

	_, err := c.GetSignatureStatuses(context.Background(), []string{"x"})
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
	assert.Equal(t, "getSignatureStatuses", rpcErr.Method)
}

func TestOnchainWalletReader_ListHoldings(t *testing.T) {
	mint := types.NewAccount().PublicKey.ToBase58()
	srv := newRPCStub(t, map[string]func(int) string{
		"getTokenAccountsByOwner": fixed(`{"context":{"slot":1},"value":[
			{"pubkey":"acct1","account":{"owner":"` + portfolio.TokenProgramID + `","data":{"program":"spl-token","parsed":{"type":"account","info":{"mint":"` + mint + `","owner":"o","tokenAmount":{"amount":"1234","decimals":2}}},"space":165}}},
			{"pubkey":"acct2","account":{"owner":"` + portfolio.TokenProgramID + `","data":{"program":"spl-token","parsed":{"type":"account","info":{"mint":"","owner":"o","tokenAmount":{"amount":"0","decimals":0}}},"space":165}}}
		]}`),
	})
	r := NewOnchainWalletReader(NewJSONRPCClient(srv.URL, 0), "confirmed")

	hs, err := r.ListHoldings(context.Background(), types.NewAccount().PublicKey)
	require.NoError(t, err)
	require.Len(t, hs, 1)
	assert.Equal(t, portfolio.Holding{Mint: mint, Account: "acct1", Amount: 1234, Decimals: 2}, hs[0])
}

func TestHistoryReader(t *testing.T) {
	srv := newRPCStub(t, map[string]func(int) string{
		"getSignaturesForAddress": fixed(`[
			{"signature":"s1","slot":10,"blockTime":1700000000,"err":null,"confirmationStatus":"finalized"},
			{"signature":"s2","slot":9,"blockTime":null,"err":{"InstructionError":[0,"Custom"]},"confirmationStatus":"confirmed"}
		]`),
		"getTransaction": fixed(`{"slot":10,"blockTime":1700000000,"transaction":{"message":{"instructions":[{"programId":"` + portfolio.TokenProgramID + `","program":"spl-token"}]}},"meta":{"err":null,"logMessages":["Program log: Instruction: Transfer"]}}`),
	})
	r := NewHistoryReaderSolana(NewJSONRPCClient(srv.URL, 0), "confirmed")

	sigs, err := r.RecentSignatures(context.Background(), types.NewAccount().PublicKey, 10)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, int64(1700000000), sigs[0].BlockTime)
	assert.False(t, sigs[0].Failed)
	assert.True(t, sigs[1].Failed)
	assert.Zero(t, sigs[1].BlockTime)

	tx, err := r.ParsedTransaction(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, portfolio.TxTokenTransfer, portfolio.Classify(tx))
}

func TestHistoryReader_UnknownTransaction(t *testing.T) {
	srv := newRPCStub(t, map[string]func(int) string{"getTransaction": fixed(`null`)})
	r := NewHistoryReaderSolana(NewJSONRPCClient(srv.URL, 0), "")

	tx, err := r.ParsedTransaction(context.Background(), "gone")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func newTestLedger(url string, timeout time.Duration) *LedgerClientSolana {
	l := NewLedgerClientSolana(url, NewJSONRPCClient(url, 0), timeout)
	l.PollInitial = 5 * time.Millisecond
	l.PollMax = 20 * time.Millisecond
	return l
}

func TestAwaitConfirmation_PollsUntilLevel(t *testing.T) {
	srv := newRPCStub(t, map[string]func(int) string{
		"getSignatureStatuses": func(call int) string {
			switch call {
			case 1:
				return `{"context":{"slot":1},"value":[null]}`
			case 2:
				return `{"context":{"slot":2},"value":[{"slot":2,"confirmations":0,"err":null,"confirmationStatus":"processed"}]}`
			default:
				return `{"context":{"slot":3},"value":[{"slot":3,"confirmations":1,"err":null,"confirmationStatus":"confirmed"}]}`
			}
		},
	})
	l := newTestLedger(srv.URL, 5*time.Second)

	conf, err := l.AwaitConfirmation(context.Background(), "sig-abc", ledger.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, ledger.CommitmentConfirmed, conf.Status)
	assert.Equal(t, uint64(3), conf.Slot)
	assert.False(t, conf.Failed())
}

func TestAwaitConfirmation_ExecutionError(t *testing.T) {
	srv := newRPCStub(t, map[string]func(int) string{
		"getSignatureStatuses": fixed(`{"context":{"slot":1},"value":[{"slot":1,"err":{"InstructionError":[0,{"Custom":1}]},"confirmationStatus":"processed"}]}`),
	})
	l := newTestLedger(srv.URL, 5*time.Second)

	conf, err := l.AwaitConfirmation(context.Background(), "sig-abc", ledger.CommitmentConfirmed)
	require.NoError(t, err)
	assert.True(t, conf.Failed())
	assert.Contains(t, conf.Err, "InstructionError")
}

func TestAwaitConfirmation_Timeout(t *testing.T) {
	srv := newRPCStub(t, map[string]func(int) string{
		"getSignatureStatuses": fixed(`{"context":{"slot":1},"value":[null]}`),
	})
	l := newTestLedger(srv.URL, 100*time.Millisecond)

	_, err := l.AwaitConfirmation(context.Background(), "sig-abc", ledger.CommitmentConfirmed)
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestKeypairWallet(t *testing.T) {
	acc := types.NewAccount()
	w := NewKeypairWallet(acc)

	pub, ok := w.Identity(context.Background())
	require.True(t, ok)
	assert.Equal(t, acc.PublicKey, pub)

	b := ledger.NewBatch(ledger.TransferOp(types.NewAccount().PublicKey, types.NewAccount().PublicKey, acc.PublicKey, 1))
	require.NoError(t, b.Seal(acc.PublicKey, types.NewAccount().PublicKey.ToBase58()))
	require.NoError(t, w.SignBatch(context.Background(), b))
	assert.True(t, b.FullySigned())

	w.Disconnect()
	_, ok = w.Identity(context.Background())
	assert.False(t, ok)

	_, ok = DisconnectedWallet().Identity(context.Background())
	assert.False(t, ok)
}
