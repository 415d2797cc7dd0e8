// Package config loads the server configuration from the environment,
// optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/ledger"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr        string        `env:"TOKEN_LEDGER_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"TOKEN_LEDGER_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Deployer receives the genesis supply and holds the minter role.
	Deployer      string `env:"TOKEN_LEDGER_DEPLOYER,required"`
	TokenName     string `env:"TOKEN_LEDGER_NAME" envDefault:"Tamtoken"`
	TokenSymbol   string `env:"TOKEN_LEDGER_SYMBOL" envDefault:"TAM"`
	Decimals      int32  `env:"TOKEN_LEDGER_DECIMALS" envDefault:"18"`
	GenesisTokens string `env:"TOKEN_LEDGER_GENESIS_TOKENS" envDefault:"900000000000000000"`

	Store       string `env:"TOKEN_LEDGER_STORE" envDefault:"memory"`
	SQLitePath  string `env:"TOKEN_LEDGER_SQLITE_PATH" envDefault:"token-ledger.db"`
	PostgresDSN string `env:"TOKEN_LEDGER_POSTGRES_DSN"`

	KafkaBrokers     []string `env:"TOKEN_LEDGER_KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string   `env:"TOKEN_LEDGER_KAFKA_TOPIC_PREFIX" envDefault:""`

	LogLevel  string `env:"TOKEN_LEDGER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"TOKEN_LEDGER_LOG_FORMAT" envDefault:"json"`

	RateLimitRPS   float64 `env:"TOKEN_LEDGER_RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int     `env:"TOKEN_LEDGER_RATE_LIMIT_BURST" envDefault:"100"`
}

// Load reads the given .env files (missing ones are skipped, existing
// environment variables win) and parses the environment into a Config.
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if _, err := c.DeployerAddress(); err != nil {
		errs = append(errs, err)
	}
	if c.Decimals < 0 || c.Decimals > 77 {
		errs = append(errs, fmt.Errorf("config: decimals %d out of range", c.Decimals))
	}
	if _, err := c.GenesisSupply(); err != nil {
		errs = append(errs, fmt.Errorf("config: genesis tokens: %w", err))
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("config: TOKEN_LEDGER_SQLITE_PATH is required for the sqlite store"))
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("config: TOKEN_LEDGER_POSTGRES_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown store %q", c.Store))
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// DeployerAddress parses Deployer. The zero address is not a valid deployer.
func (c Config) DeployerAddress() (common.Address, error) {
	if !common.IsHexAddress(c.Deployer) {
		return common.Address{}, fmt.Errorf("config: deployer %q is not a hex address", c.Deployer)
	}
	addr := common.HexToAddress(c.Deployer)
	if addr == (common.Address{}) {
		return common.Address{}, errors.New("config: deployer is the zero address")
	}
	return addr, nil
}

// GenesisSupply returns GenesisTokens in base units.
func (c Config) GenesisSupply() (decimal.Decimal, error) {
	return ledger.ParseUnits(c.GenesisTokens, c.Decimals)
}

// LedgerOptions translates the token settings into ledger options.
func (c Config) LedgerOptions() ([]ledger.Option, error) {
	genesis, err := c.GenesisSupply()
	if err != nil {
		return nil, err
	}
	return []ledger.Option{
		ledger.WithMetadata(c.TokenName, c.TokenSymbol, c.Decimals),
		ledger.WithGenesisSupply(genesis),
	}, nil
}

// Logger builds the process logger described by LogLevel and LogFormat.
func (c Config) Logger() *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log level %q: %w", s, err)
	}
	return level, nil
}
