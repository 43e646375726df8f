// internal/infra/solana/history_reader.go
package solana

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/PraiseTechzw/solana-token-manager/internal/application/usecase"
	"github.com/PraiseTechzw/solana-token-manager/internal/domain/portfolio"
)

// HistoryReaderSolana implements usecase.HistoryReader.
type HistoryReaderSolana struct {
	Client     *JSONRPCClient
	Commitment string
}

var _ usecase.HistoryReader = (*HistoryReaderSolana)(nil)

func NewHistoryReaderSolana(c *JSONRPCClient, commitment string) *HistoryReaderSolana {
	return &HistoryReaderSolana{Client: c, Commitment: commitment}
}

func (r *HistoryReaderSolana) RecentSignatures(ctx context.Context, owner common.PublicKey, limit int) ([]portfolio.SignatureInfo, error) {
	if r == nil || r.Client == nil {
		return nil, fmt.Errorf("solana history reader: client not configured")
	}
	rows, err := r.Client.GetSignaturesForAddress(ctx, owner.ToBase58(), limit, r.Commitment)
	if err != nil {
		return nil, err
	}
	out := make([]portfolio.SignatureInfo, 0, len(rows))
	for _, row := range rows {
		si := portfolio.SignatureInfo{
			Signature:          row.Signature,
			Slot:               row.Slot,
			Failed:             row.Failed(),
			ConfirmationStatus: row.ConfirmationStatus,
		}
		if row.BlockTime != nil {
			si.BlockTime = *row.BlockTime
		}
		out = append(out, si)
	}
	return out, nil
}

// ParsedTransaction returns nil when the node no longer has the transaction.
func (r *HistoryReaderSolana) ParsedTransaction(ctx context.Context, signature string) (*portfolio.ParsedTx, error) {
	if r == nil || r.Client == nil {
		return nil, fmt.Errorf("solana history reader: client not configured")
	}
	res, err := r.Client.GetParsedTransaction(ctx, signature, r.Commitment)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	tx := &portfolio.ParsedTx{}
	for _, ix := range res.Transaction.Message.Instructions {
		tx.ProgramIDs = append(tx.ProgramIDs, ix.ProgramID)
	}
	if res.Meta != nil {
		tx.LogMessages = res.Meta.LogMessages
	}
	return tx, nil
}
