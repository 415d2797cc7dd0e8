package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/token-ledger/internal/httpapi"
	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/service"
	"github.com/sheikh-saqib/token-ledger/internal/storage/memory"
)

var (
	deployer = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob      = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

// newTestServer serves a token with 2 decimals and 1000 whole tokens.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc, err := service.NewTokenService(deployer, memory.NewMemoryJournalStore(),
		service.WithLedgerOptions(
			ledger.WithMetadata("Tamtoken", "TAM", 2),
			ledger.WithGenesisSupply(decimal.NewFromInt(100000)),
		))
	require.NoError(t, err)
	srv := httptest.NewServer(httpapi.NewHandler(svc))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", server}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tokenctl", cmd.Use)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("caller"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("raw"))
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"info", "balance", "allowance", "history",
		"transfer", "approve", "increase-allowance", "decrease-allowance",
		"transfer-from", "mint", "burn", "finish-minting",
	}

	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestTransferInWholeTokens(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, srv.URL, "--caller", deployer.Hex(), "--format", "json", "transfer", alice.Hex(), "1.5")
	require.NoError(t, err, out)

	var op operationView
	require.NoError(t, json.Unmarshal([]byte(out), &op))
	assert.Equal(t, "transfer", op.Kind)
	assert.Equal(t, "1.5", op.Amount)
	assert.Equal(t, int64(1), op.Seq)

	out, err = run(t, srv.URL, "--raw", "--format", "json", "balance", alice.Hex())
	require.NoError(t, err, out)
	var bal balanceView
	require.NoError(t, json.Unmarshal([]byte(out), &bal))
	assert.Equal(t, "150", bal.Balance)

	out, err = run(t, srv.URL, "balance", alice.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "1.5 TAM")
}

func TestTooManyDecimalsIsCommandError(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv.URL, "--caller", deployer.Hex(), "transfer", alice.Hex(), "0.001")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRejectionExitsWithFailure(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv.URL, "--caller", alice.Hex(), "mint", alice.Hex(), "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), string(ledger.KindOnlyMinter))
}

func TestMutationRequiresCaller(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv.URL, "transfer", alice.Hex(), "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInvalidFormat(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv.URL, "--format", "xml", "info")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestUnreachableServer(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "--timeout", "1s", "info")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInfoYAML(t *testing.T) {
	srv := newTestServer(t)

	out, err := run(t, srv.URL, "--format", "yaml", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "symbol: TAM")
	assert.Contains(t, out, "total_supply: \"1000\"")
	assert.Contains(t, out, "minting_finished: false")
}

func TestAllowanceWorkflow(t *testing.T) {
	srv := newTestServer(t)

	_, err := run(t, srv.URL, "--caller", deployer.Hex(), "approve", alice.Hex(), "10")
	require.NoError(t, err)
	_, err = run(t, srv.URL, "--caller", deployer.Hex(), "increase-allowance", alice.Hex(), "5")
	require.NoError(t, err)
	_, err = run(t, srv.URL, "--caller", deployer.Hex(), "decrease-allowance", alice.Hex(), "3")
	require.NoError(t, err)

	out, err := run(t, srv.URL, "allowance", deployer.Hex(), alice.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "12 TAM")

	_, err = run(t, srv.URL, "--caller", alice.Hex(), "transfer-from", deployer.Hex(), bob.Hex(), "12")
	require.NoError(t, err)

	_, err = run(t, srv.URL, "--caller", alice.Hex(), "transfer-from", deployer.Hex(), bob.Hex(), "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMintBurnFinishAndHistory(t *testing.T) {
	srv := newTestServer(t)
	asMinter := []string{"--caller", deployer.Hex()}

	_, err := run(t, srv.URL, append(asMinter, "mint", bob.Hex(), "2")...)
	require.NoError(t, err)
	_, err = run(t, srv.URL, append(asMinter, "burn", bob.Hex(), "0.5")...)
	require.NoError(t, err)
	_, err = run(t, srv.URL, append(asMinter, "finish-minting")...)
	require.NoError(t, err)

	_, err = run(t, srv.URL, append(asMinter, "mint", bob.Hex(), "1")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(ledger.KindMintingHasFinished))

	out, err := run(t, srv.URL, "history", "--account", bob.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "#1 mint 2 TAM")
	assert.Contains(t, out, "#2 burn 0.5 TAM")
	assert.NotContains(t, out, "finish_minting")

	out, err = run(t, srv.URL, "--format", "json", "history")
	require.NoError(t, err)
	var hist historyView
	require.NoError(t, json.Unmarshal([]byte(out), &hist))
	assert.Len(t, hist.Operations, 3)
}

func TestIdempotencyKeyFlag(t *testing.T) {
	srv := newTestServer(t)
	args := []string{"--caller", deployer.Hex(), "transfer", alice.Hex(), "1", "--idempotency-key", "once"}

	_, err := run(t, srv.URL, args...)
	require.NoError(t, err)
	out, err := run(t, srv.URL, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "(replayed)")
}
