// internal/domain/portfolio/entity.go
package portfolio

import (
	"strings"
	"time"

	"github.com/PraiseTechzw/solana-token-manager/internal/domain/ledger"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL uint64 = 1_000_000_000

// Holding is one SPL token account owned by a wallet.
type Holding struct {
	Mint     string `json:"mint"`
	Account  string `json:"account"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Amount   uint64 `json:"amount"`
	Decimals uint8  `json:"decimals"`
	Balance  string `json:"balance"`
}

// Metadata is the Metaplex name/symbol attached to a mint.
type Metadata struct {
	Name   string
	Symbol string
}

// Describe fills Balance and the display name/symbol. Missing metadata falls back to a
// shortened mint for the name and its first 4 characters for the symbol.
func (h Holding) Describe(md Metadata, found bool) Holding {
	h.Balance = ledger.FormatBaseUnits(h.Amount, h.Decimals)
	name, symbol := "", ""
	if found {
		name = cleanText(md.Name)
		symbol = cleanText(md.Symbol)
	}
	if name == "" {
		name = ShortAddress(h.Mint)
	}
	if symbol == "" {
		symbol = prefix(h.Mint, 4)
	}
	h.Name = name
	h.Symbol = symbol
	return h
}

// WalletInfo is the connected identity and its SOL balance.
type WalletInfo struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

func NewWalletInfo(address string, lamports uint64) WalletInfo {
	return WalletInfo{
		Address:  address,
		Lamports: lamports,
		SOL:      ledger.FormatBaseUnits(lamports, 9),
	}
}

// ShortAddress renders "abcdef...wxyz".
func ShortAddress(addr string) string {
	return ledger.Shorten(addr, 6)
}

func prefix(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Metaplex pads name/symbol with NUL bytes.
func cleanText(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// ============================================================
// History
// ============================================================

type TxType string

const (
	TxTokenCreation    TxType = "Token Creation"
	TxTokenMint        TxType = "Token Mint"
	TxTokenTransfer    TxType = "Token Transfer"
	TxTokenTransaction TxType = "Token Transaction"
	TxSOL              TxType = "SOL Transaction"
	TxUnknown          TxType = "Unknown"
)

type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
	TxPending TxStatus = "pending"
)

// SignatureInfo is one row of getSignaturesForAddress.
type SignatureInfo struct {
	Signature          string
	Slot               uint64
	BlockTime          int64 // unix seconds; 0 when unknown
	Failed             bool
	ConfirmationStatus string
}

// ParsedTx is the subset of a parsed transaction used for classification.
type ParsedTx struct {
	ProgramIDs  []string // top-level instruction programs
	LogMessages []string
}

// HistoryEntry is one classified transaction of the wallet.
type HistoryEntry struct {
	Signature   string     `json:"signature"`
	Slot        uint64     `json:"slot"`
	BlockTime   *time.Time `json:"blockTime,omitempty"`
	Type        TxType     `json:"type"`
	Status      TxStatus   `json:"status"`
	ExplorerURL string     `json:"explorerUrl"`
}

// TokenProgramID is the SPL token program.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Classify derives the transaction type. Precedence: creation, mint, transfer, other token
// activity, plain SOL. A transaction that could not be fetched is Unknown.
func Classify(tx *ParsedTx) TxType {
	if tx == nil {
		return TxUnknown
	}
	usesToken := false
	for _, p := range tx.ProgramIDs {
		if p == TokenProgramID {
			usesToken = true
			break
		}
	}
	if !usesToken {
		return TxSOL
	}
	switch {
	case logsContain(tx.LogMessages, "Create"), logsContain(tx.LogMessages, "InitializeMint"):
		return TxTokenCreation
	case logsContain(tx.LogMessages, "MintTo"):
		return TxTokenMint
	case logsContain(tx.LogMessages, "Transfer"):
		return TxTokenTransfer
	default:
		return TxTokenTransaction
	}
}

// StatusFor maps a signature row onto the badge shown next to it.
func StatusFor(s SignatureInfo) TxStatus {
	if s.Failed {
		return TxFailed
	}
	switch ledger.Commitment(strings.ToLower(s.ConfirmationStatus)) {
	case ledger.CommitmentConfirmed, ledger.CommitmentFinalized:
		return TxSuccess
	}
	return TxPending
}

// NewHistoryEntry combines a signature row with its (optional) parsed transaction.
func NewHistoryEntry(s SignatureInfo, tx *ParsedTx, cluster string) HistoryEntry {
	e := HistoryEntry{
		Signature:   s.Signature,
		Slot:        s.Slot,
		Type:        Classify(tx),
		Status:      StatusFor(s),
		ExplorerURL: ExplorerURL(s.Signature, cluster),
	}
	if s.BlockTime > 0 {
		t := time.Unix(s.BlockTime, 0).UTC()
		e.BlockTime = &t
	}
	return e
}

// ExplorerURL links a signature on the public explorer. An empty cluster means mainnet.
func ExplorerURL(signature, cluster string) string {
	u := "https://explorer.solana.com/tx/" + signature
	cluster = strings.TrimSpace(cluster)
	if cluster != "" && cluster != "mainnet-beta" {
		u += "?cluster=" + cluster
	}
	return u
}

func logsContain(logs []string, needle string) bool {
	for _, l := range logs {
		if strings.Contains(l, needle) {
			return true
		}
	}
	return false
}
