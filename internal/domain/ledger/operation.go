// internal/domain/ledger/operation.go
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
)

// MintAccountSize is the byte size of an SPL mint account.
const MintAccountSize = token.MintAccountSize

// OperationKind names what an operation does, for logging and classification.
type OperationKind string

const (
	KindCreateAccount        OperationKind = "create_account"
	KindInitializeMint       OperationKind = "initialize_mint"
	KindCreateHoldingAccount OperationKind = "create_holding_account"
	KindMintTo               OperationKind = "mint_to"
	KindTransfer             OperationKind = "transfer"
	KindCreateMetadata       OperationKind = "create_metadata"
	KindOther                OperationKind = "other"
)

// SPL token program instruction tags (first data byte).
const (
	tokenTagInitializeMint byte = 0
	tokenTagTransfer       byte = 3
	tokenTagMintTo         byte = 7
)

// KindOf classifies an operation by program and instruction tag.
func KindOf(op types.Instruction) OperationKind {
	switch op.ProgramID {
	case common.SystemProgramID:
		if len(op.Data) >= 4 && binary.LittleEndian.Uint32(op.Data[:4]) == 0 {
			return KindCreateAccount
		}
	case common.SPLAssociatedTokenAccountProgramID:
		return KindCreateHoldingAccount
	case common.MetaplexTokenMetaProgramID:
		return KindCreateMetadata
	case common.TokenProgramID:
		if len(op.Data) == 0 {
			return KindOther
		}
		switch op.Data[0] {
		case tokenTagInitializeMint:
			return KindInitializeMint
		case tokenTagMintTo:
			return KindMintTo
		case tokenTagTransfer:
			return KindTransfer
		}
	}
	return KindOther
}

// TokenAmount decodes the base-unit amount carried by a MintTo or Transfer operation.
func TokenAmount(op types.Instruction) (uint64, bool) {
	switch KindOf(op) {
	case KindMintTo, KindTransfer:
		if len(op.Data) < 9 {
			return 0, false
		}
		return binary.LittleEndian.Uint64(op.Data[1:9]), true
	}
	return 0, false
}

// Kinds lists the kinds of every operation in order.
func Kinds(ops []types.Instruction) []OperationKind {
	out := make([]OperationKind, 0, len(ops))
	for _, op := range ops {
		out = append(out, KindOf(op))
	}
	return out
}

// ========================================
// Builders
// ========================================

// HoldingAddress derives the associated holding account of (owner, mint).
func HoldingAddress(owner, mint common.PublicKey) (common.PublicKey, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return common.PublicKey{}, err
	}
	return ata, nil
}

// CreateMintAccountOp allocates a mint-sized account owned by the token program,
// funded with the rent-exempt minimum.
func CreateMintAccountOp(payer, mint common.PublicKey, lamports uint64) types.Instruction {
	return system.CreateAccount(system.CreateAccountParam{
		From:     payer,
		New:      mint,
		Owner:    common.TokenProgramID,
		Lamports: lamports,
		Space:    MintAccountSize,
	})
}

// InitializeMintOp initializes mint with authority as both mint and freeze authority.
func InitializeMintOp(mint, authority common.PublicKey, decimals uint8) types.Instruction {
	freeze := authority
	return token.InitializeMint(token.InitializeMintParam{
		Decimals:   decimals,
		Mint:       mint,
		MintAuth:   authority,
		FreezeAuth: &freeze,
	})
}

// CreateHoldingAccountOp creates owner's associated holding account, paid by payer.
func CreateHoldingAccountOp(payer, owner, mint, holding common.PublicKey) types.Instruction {
	return associated_token_account.CreateAssociatedTokenAccount(
		associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 payer,
			Owner:                  owner,
			Mint:                   mint,
			AssociatedTokenAccount: holding,
		},
	)
}

// MintToOp mints amount base units into holding, authorized by authority.
func MintToOp(mint, holding, authority common.PublicKey, amount uint64) types.Instruction {
	return token.MintTo(token.MintToParam{
		Mint:   mint,
		To:     holding,
		Auth:   authority,
		Amount: amount,
	})
}

// TransferOp moves amount base units between holding accounts, authorized by owner.
func TransferOp(from, to, owner common.PublicKey, amount uint64) types.Instruction {
	return token.Transfer(token.TransferParam{
		From:   from,
		To:     to,
		Auth:   owner,
		Amount: amount,
	})
}

// Metaplex field limits.
const (
	MaxMetadataName   = 32
	MaxMetadataSymbol = 10
	MaxMetadataURI    = 200
)

var ErrInvalidMetadata = errors.New("ledger: invalid token metadata")

// CreateMetadataOp attaches Metaplex name/symbol/uri to mint. authority pays and keeps
// update rights.
func CreateMetadataOp(mint, authority common.PublicKey, name, symbol, uri string) (types.Instruction, error) {
	if name == "" || len(name) > MaxMetadataName || len(symbol) > MaxMetadataSymbol || len(uri) > MaxMetadataURI {
		return types.Instruction{}, fmt.Errorf("%w: name=%q symbol=%q", ErrInvalidMetadata, name, symbol)
	}
	metadata, err := token_metadata.GetTokenMetaPubkey(mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("ledger: metadata address: %w", err)
	}
	return token_metadata.CreateMetadataAccountV3(token_metadata.CreateMetadataAccountV3Param{
		Metadata:                metadata,
		Mint:                    mint,
		MintAuthority:           authority,
		UpdateAuthority:         authority,
		Payer:                   authority,
		UpdateAuthorityIsSigner: true,
		IsMutable:               true,
		Data: token_metadata.DataV2{
			Name:   name,
			Symbol: symbol,
			Uri:    uri,
		},
	}), nil
}
