package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// OperationKind names one of the mutating ledger operations.
type OperationKind string

const (
	KindTransfer          OperationKind = "transfer"
	KindApprove           OperationKind = "approve"
	KindIncreaseAllowance OperationKind = "increase_allowance"
	KindDecreaseAllowance OperationKind = "decrease_allowance"
	KindTransferFrom      OperationKind = "transfer_from"
	KindMint              OperationKind = "mint"
	KindBurn              OperationKind = "burn"
	KindFinishMinting     OperationKind = "finish_minting"
)

// Kinds lists every operation kind in a stable order.
var Kinds = []OperationKind{
	KindTransfer,
	KindApprove,
	KindIncreaseAllowance,
	KindDecreaseAllowance,
	KindTransferFrom,
	KindMint,
	KindBurn,
	KindFinishMinting,
}

// Valid reports whether k is a known operation kind.
func (k OperationKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Operation is a single request against the ledger and, once applied, the
// journal record of it.
//
// Field usage per kind:
//   - transfer:            Caller -> To
//   - approve / *allowance: Caller (owner) grants Spender
//   - transfer_from:       Caller (spender) moves From (owner) -> To
//   - mint:                Caller (minter) credits To
//   - burn:                Caller (minter) debits From
//   - finish_minting:      Caller (minter)
type Operation struct {
	ID             string          `json:"id"`
	Seq            int64           `json:"seq"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Kind           OperationKind   `json:"kind"`
	Caller         common.Address  `json:"caller"`
	From           common.Address  `json:"from"`
	To             common.Address  `json:"to"`
	Spender        common.Address  `json:"spender"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Involves reports whether account appears in any role of the operation.
func (o Operation) Involves(account common.Address) bool {
	return o.Caller == account || o.From == account || o.To == account || o.Spender == account
}

func NewTransfer(caller, to common.Address, amount decimal.Decimal) Operation {
	return Operation{Kind: KindTransfer, Caller: caller, From: caller, To: to, Amount: amount}
}

func NewApprove(caller, spender common.Address, amount decimal.Decimal) Operation {
	return Operation{Kind: KindApprove, Caller: caller, From: caller, Spender: spender, Amount: amount}
}

func NewIncreaseAllowance(caller, spender common.Address, added decimal.Decimal) Operation {
	return Operation{Kind: KindIncreaseAllowance, Caller: caller, From: caller, Spender: spender, Amount: added}
}

func NewDecreaseAllowance(caller, spender common.Address, subtracted decimal.Decimal) Operation {
	return Operation{Kind: KindDecreaseAllowance, Caller: caller, From: caller, Spender: spender, Amount: subtracted}
}

func NewTransferFrom(caller, owner, to common.Address, amount decimal.Decimal) Operation {
	return Operation{Kind: KindTransferFrom, Caller: caller, From: owner, To: to, Spender: caller, Amount: amount}
}

func NewMint(caller, to common.Address, amount decimal.Decimal) Operation {
	return Operation{Kind: KindMint, Caller: caller, To: to, Amount: amount}
}

func NewBurn(caller, from common.Address, amount decimal.Decimal) Operation {
	return Operation{Kind: KindBurn, Caller: caller, From: from, Amount: amount}
}

func NewFinishMinting(caller common.Address) Operation {
	return Operation{Kind: KindFinishMinting, Caller: caller, Amount: decimal.Zero}
}
