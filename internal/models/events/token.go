package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	TopicTransfer        = "token.transfer"
	TopicApproval        = "token.approval"
	TopicMintingFinished = "token.minting_finished"
)

// Transfer is emitted whenever value moves. Mints come from the zero address
// and burns go to it.
type Transfer struct {
	OperationID string          `json:"operation_id"`
	Seq         int64           `json:"seq"`
	From        common.Address  `json:"from"`
	To          common.Address  `json:"to"`
	Value       decimal.Decimal `json:"value"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Approval carries the allowance that is in force after the operation.
type Approval struct {
	OperationID string          `json:"operation_id"`
	Seq         int64           `json:"seq"`
	Owner       common.Address  `json:"owner"`
	Spender     common.Address  `json:"spender"`
	Value       decimal.Decimal `json:"value"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type MintingFinished struct {
	OperationID string         `json:"operation_id"`
	Seq         int64          `json:"seq"`
	Minter      common.Address `json:"minter"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
