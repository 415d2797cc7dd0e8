package cli

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/token-ledger/internal/client"
	"github.com/sheikh-saqib/token-ledger/internal/service"
)

// mutation describes a command that submits one operation as --caller.
type mutation struct {
	name      string
	short     string
	addresses []string // positional address arguments, in order
	amount    bool     // whether an amount follows the addresses
	send      func(ctx context.Context, c *client.Client, addrs []common.Address, amount decimal.Decimal, key string) (service.Result, error)
}

var mutations = []mutation{
	{
		name:      "transfer",
		short:     "Move tokens from the caller to an account",
		addresses: []string{"to"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.Transfer(ctx, a[0], amt, key)
		},
	},
	{
		name:      "approve",
		short:     "Set the amount a spender may move from the caller",
		addresses: []string{"spender"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.Approve(ctx, a[0], amt, key)
		},
	},
	{
		name:      "increase-allowance",
		short:     "Raise a spender's allowance over the caller",
		addresses: []string{"spender"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.IncreaseAllowance(ctx, a[0], amt, key)
		},
	},
	{
		name:      "decrease-allowance",
		short:     "Lower a spender's allowance over the caller",
		addresses: []string{"spender"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.DecreaseAllowance(ctx, a[0], amt, key)
		},
	},
	{
		name:      "transfer-from",
		short:     "Move an owner's tokens using the caller's allowance",
		addresses: []string{"owner", "to"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.TransferFrom(ctx, a[0], a[1], amt, key)
		},
	},
	{
		name:      "mint",
		short:     "Create tokens (minter only)",
		addresses: []string{"to"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.Mint(ctx, a[0], amt, key)
		},
	},
	{
		name:      "burn",
		short:     "Destroy tokens held by an account (minter only)",
		addresses: []string{"from"},
		amount:    true,
		send: func(ctx context.Context, c *client.Client, a []common.Address, amt decimal.Decimal, key string) (service.Result, error) {
			return c.Burn(ctx, a[0], amt, key)
		},
	},
	{
		name:  "finish-minting",
		short: "Permanently disable minting (minter only)",
		send: func(ctx context.Context, c *client.Client, _ []common.Address, _ decimal.Decimal, key string) (service.Result, error) {
			return c.FinishMinting(ctx, key)
		},
	},
}

func (m mutation) use() string {
	parts := []string{m.name}
	for _, a := range m.addresses {
		parts = append(parts, "<"+a+">")
	}
	if m.amount {
		parts = append(parts, "<amount>")
	}
	return strings.Join(parts, " ")
}

func (m mutation) argCount() int {
	if m.amount {
		return len(m.addresses) + 1
	}
	return len(m.addresses)
}

func newMutationCommand(opts *RootOptions, m mutation) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   m.use(),
		Short: m.short,
		Args:  cobra.ExactArgs(m.argCount()),
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs := make([]common.Address, len(m.addresses))
			for i, name := range m.addresses {
				a, err := parseAddress(name, args[i])
				if err != nil {
					return err
				}
				addrs[i] = a
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			s, err := newSession(ctx, opts, cmd, true)
			if err != nil {
				return err
			}

			amount := decimal.Zero
			if m.amount {
				amount, err = s.parseAmount(args[len(args)-1])
				if err != nil {
					return err
				}
			}

			res, err := m.send(ctx, s.client, addrs, amount, key)
			if err != nil {
				return wrapRequestError(err)
			}
			view := s.operationView(res.Operation)
			view.Replayed = res.Replayed
			return s.out.Print(view)
		},
	}

	cmd.Flags().StringVar(&key, "idempotency-key", "", "reuse the result of an earlier request with this key")
	return cmd
}
