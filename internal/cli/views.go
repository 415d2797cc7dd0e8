package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/service"
)

func (s *session) parseAmount(raw string) (decimal.Decimal, error) {
	var (
		amount decimal.Decimal
		err    error
	)
	if s.opts.Raw {
		amount, err = ledger.ParseBaseUnits(raw)
	} else {
		amount, err = ledger.ParseUnits(raw, s.decimals)
	}
	if err != nil {
		return decimal.Zero, WrapExitError(ExitCommandError, "invalid amount", err)
	}
	return amount, nil
}

func (s *session) formatAmount(amount decimal.Decimal) string {
	if s.opts.Raw {
		return amount.String()
	}
	return ledger.FormatUnits(amount, s.decimals)
}

// unit labels text output; empty in raw mode.
func (s *session) unit() string {
	if s.opts.Raw || s.symbol == "" {
		return ""
	}
	return " " + s.symbol
}

type infoView struct {
	Name            string `json:"name" yaml:"name"`
	Symbol          string `json:"symbol" yaml:"symbol"`
	Decimals        int32  `json:"decimals" yaml:"decimals"`
	TotalSupply     string `json:"total_supply" yaml:"total_supply"`
	Minter          string `json:"minter" yaml:"minter"`
	MintingFinished bool   `json:"minting_finished" yaml:"minting_finished"`
	Seq             int64  `json:"seq" yaml:"seq"`
}

func (s *session) infoView(info service.TokenInfo) infoView {
	return infoView{
		Name:            info.Name,
		Symbol:          info.Symbol,
		Decimals:        info.Decimals,
		TotalSupply:     s.formatAmount(info.TotalSupply),
		Minter:          info.Minter.Hex(),
		MintingFinished: info.MintingFinished,
		Seq:             info.Seq,
	}
}

func (v infoView) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s (%s)\n", v.Name, v.Symbol)
	fmt.Fprintf(w, "  decimals:         %d\n", v.Decimals)
	fmt.Fprintf(w, "  total supply:     %s\n", v.TotalSupply)
	fmt.Fprintf(w, "  minter:           %s\n", v.Minter)
	fmt.Fprintf(w, "  minting finished: %t\n", v.MintingFinished)
	fmt.Fprintf(w, "  seq:              %d\n", v.Seq)
}

type balanceView struct {
	Account string `json:"account" yaml:"account"`
	Balance string `json:"balance" yaml:"balance"`
	unit    string
}

func (v balanceView) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s %s%s\n", v.Account, v.Balance, v.unit)
}

type allowanceView struct {
	Owner     string `json:"owner" yaml:"owner"`
	Spender   string `json:"spender" yaml:"spender"`
	Allowance string `json:"allowance" yaml:"allowance"`
	unit      string
}

func (v allowanceView) writeText(w io.Writer) {
	fmt.Fprintf(w, "%s may spend %s%s of %s\n", v.Spender, v.Allowance, v.unit, v.Owner)
}

type operationView struct {
	Seq            int64  `json:"seq" yaml:"seq"`
	ID             string `json:"id" yaml:"id"`
	Kind           string `json:"kind" yaml:"kind"`
	Caller         string `json:"caller" yaml:"caller"`
	From           string `json:"from,omitempty" yaml:"from,omitempty"`
	To             string `json:"to,omitempty" yaml:"to,omitempty"`
	Spender        string `json:"spender,omitempty" yaml:"spender,omitempty"`
	Amount         string `json:"amount" yaml:"amount"`
	IdempotencyKey string `json:"idempotency_key,omitempty" yaml:"idempotency_key,omitempty"`
	CreatedAt      string `json:"created_at" yaml:"created_at"`
	Replayed       bool   `json:"replayed,omitempty" yaml:"replayed,omitempty"`
	unit           string
}

func hexOrEmpty(a common.Address) string {
	if a == (common.Address{}) {
		return ""
	}
	return a.Hex()
}

func (s *session) operationView(op models.Operation) operationView {
	return operationView{
		Seq:            op.Seq,
		ID:             op.ID,
		Kind:           string(op.Kind),
		Caller:         op.Caller.Hex(),
		From:           hexOrEmpty(op.From),
		To:             hexOrEmpty(op.To),
		Spender:        hexOrEmpty(op.Spender),
		Amount:         s.formatAmount(op.Amount),
		IdempotencyKey: op.IdempotencyKey,
		CreatedAt:      op.CreatedAt.UTC().Format(time.RFC3339),
		unit:           s.unit(),
	}
}

func (v operationView) writeText(w io.Writer) {
	fmt.Fprintf(w, "#%d %s %s%s", v.Seq, v.Kind, v.Amount, v.unit)
	if v.From != "" {
		fmt.Fprintf(w, " from %s", v.From)
	}
	if v.To != "" {
		fmt.Fprintf(w, " to %s", v.To)
	}
	if v.Spender != "" {
		fmt.Fprintf(w, " spender %s", v.Spender)
	}
	fmt.Fprintf(w, " by %s at %s", v.Caller, v.CreatedAt)
	if v.Replayed {
		fmt.Fprint(w, " (replayed)")
	}
	fmt.Fprintln(w)
}

type historyView struct {
	Operations []operationView `json:"operations" yaml:"operations"`
}

func (v historyView) writeText(w io.Writer) {
	if len(v.Operations) == 0 {
		fmt.Fprintln(w, "no operations")
		return
	}
	for _, op := range v.Operations {
		op.writeText(w)
	}
}
