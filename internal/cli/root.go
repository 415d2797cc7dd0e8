package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/token-ledger/internal/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Caller  string
	Format  string // "text" | "json" | "yaml"
	Raw     bool
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for tokenctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tokenctl",
		Short: "Operate a token ledger server",
		Long: `tokenctl sends queries and operations to a token ledger server.

Amounts are whole tokens (for example 1.5) and are converted with the
token's decimals. Pass --raw to read and write base units instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", "http://localhost:8080", "token ledger server URL")
	cmd.PersistentFlags().StringVar(&opts.Caller, "caller", "", "hex address to act as")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVar(&opts.Raw, "raw", false, "amounts are base units")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 15*time.Second, "request timeout")

	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewAllowanceCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	for _, m := range mutations {
		cmd.AddCommand(newMutationCommand(opts, m))
	}

	return cmd
}

// session is the per-invocation state shared by commands.
type session struct {
	opts     *RootOptions
	client   *client.Client
	out      *OutputFormatter
	decimals int32
	symbol   string
}

// newSession prepares a client. Unless --raw is set it loads the token's
// decimals so amounts can be converted.
func newSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, needCaller bool) (*session, error) {
	var clientOpts []client.Option
	if opts.Caller != "" || needCaller {
		caller, err := parseAddress("--caller", opts.Caller)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, client.WithCaller(caller))
	}

	s := &session{
		opts:   opts,
		client: client.New(opts.Server, clientOpts...),
		out:    &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}
	if !opts.Raw {
		info, err := s.client.Info(ctx)
		if err != nil {
			return nil, wrapRequestError(err)
		}
		s.decimals = info.Decimals
		s.symbol = info.Symbol
	}
	return s, nil
}

func (o *RootOptions) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.Timeout)
}

func parseAddress(name, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, NewExitError(ExitCommandError, name+" is required")
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, NewExitError(ExitCommandError, fmt.Sprintf("%s %q is not a hex address", name, value))
	}
	return common.HexToAddress(value), nil
}
