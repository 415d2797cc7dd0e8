package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDeployer = "0x1000000000000000000000000000000000000001"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TOKEN_LEDGER_DEPLOYER", testDeployer)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "Tamtoken", cfg.TokenName)
	assert.Equal(t, "TAM", cfg.TokenSymbol)
	assert.Equal(t, int32(18), cfg.Decimals)
	assert.Equal(t, StoreMemory, cfg.Store)

	addr, err := cfg.DeployerAddress()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testDeployer), addr)

	genesis, err := cfg.GenesisSupply()
	require.NoError(t, err)
	assert.Equal(t, "900000000000000000000000000000000000", genesis.String())

	opts, err := cfg.LedgerOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 2)
}

func TestLoadMissingDeployer(t *testing.T) {
	t.Setenv("TOKEN_LEDGER_DEPLOYER", "")
	os.Unsetenv("TOKEN_LEDGER_DEPLOYER")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_LEDGER_DEPLOYER")
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	content := "TOKEN_LEDGER_DEPLOYER=" + testDeployer + "\n" +
		"TOKEN_LEDGER_STORE=sqlite\n" +
		"TOKEN_LEDGER_SQLITE_PATH=" + filepath.Join(dir, "j.db") + "\n" +
		"TOKEN_LEDGER_KAFKA_BROKERS=k1:9092,k2:9092\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	// godotenv sets process variables; make sure they are cleaned up.
	for _, key := range []string{"TOKEN_LEDGER_DEPLOYER", "TOKEN_LEDGER_STORE", "TOKEN_LEDGER_SQLITE_PATH", "TOKEN_LEDGER_KAFKA_BROKERS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(filepath.Join(dir, "missing.env"), file)
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestValidate(t *testing.T) {
	base := Config{
		Deployer:      testDeployer,
		Decimals:      18,
		GenesisTokens: "1",
		Store:         StoreMemory,
		LogLevel:      "info",
		LogFormat:     "json",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero deployer", func(c *Config) { c.Deployer = "0x0000000000000000000000000000000000000000" }, "zero address"},
		{"bad deployer", func(c *Config) { c.Deployer = "alice" }, "not a hex address"},
		{"bad genesis", func(c *Config) { c.GenesisTokens = "-5" }, "genesis"},
		{"unknown store", func(c *Config) { c.Store = "redis" }, "unknown store"},
		{"postgres without dsn", func(c *Config) { c.Store = StorePostgres }, "POSTGRES_DSN"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogFormat: "text"}
	assert.NotNil(t, cfg.Logger())
}
