package cli

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

func NewInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show token metadata, total supply and minting state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			s, err := newSession(ctx, opts, cmd, false)
			if err != nil {
				return err
			}
			info, err := s.client.Info(ctx)
			if err != nil {
				return wrapRequestError(err)
			}
			return s.out.Print(s.infoView(info))
		},
	}
}

func NewBalanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAddress("account", args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			s, err := newSession(ctx, opts, cmd, false)
			if err != nil {
				return err
			}
			bal, err := s.client.BalanceOf(ctx, account)
			if err != nil {
				return wrapRequestError(err)
			}
			return s.out.Print(balanceView{Account: account.Hex(), Balance: s.formatAmount(bal), unit: s.unit()})
		},
	}
}

func NewAllowanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allowance <owner> <spender>",
		Short: "Show how much spender may move on behalf of owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseAddress("owner", args[0])
			if err != nil {
				return err
			}
			spender, err := parseAddress("spender", args[1])
			if err != nil {
				return err
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			s, err := newSession(ctx, opts, cmd, false)
			if err != nil {
				return err
			}
			a, err := s.client.Allowance(ctx, owner, spender)
			if err != nil {
				return wrapRequestError(err)
			}
			return s.out.Print(allowanceView{
				Owner:     owner.Hex(),
				Spender:   spender.Hex(),
				Allowance: s.formatAmount(a),
				unit:      s.unit(),
			})
		},
	}
}

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *common.Address
			if account != "" {
				a, err := parseAddress("--account", account)
				if err != nil {
					return err
				}
				filter = &a
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			s, err := newSession(ctx, opts, cmd, false)
			if err != nil {
				return err
			}
			ops, err := s.client.History(ctx, filter)
			if err != nil {
				return wrapRequestError(err)
			}

			view := historyView{Operations: make([]operationView, 0, len(ops))}
			for _, op := range ops {
				view.Operations = append(view.Operations, s.operationView(op))
			}
			return s.out.Print(view)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "only operations involving this address")
	return cmd
}
