// Package service wires the ledger to its journal, event publisher, metrics
// and logger. It is what the HTTP API and the server binary talk to.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/metrics"
	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// ErrIdempotencyConflict is returned when an idempotency key is reused for a
// different operation.
var ErrIdempotencyConflict = errors.New("service: idempotency key reused for a different operation")

// TokenService serializes every mutation together with its idempotency
// lookup and event publication.
type TokenService struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	store     interfaces.JournalStore
	publisher interfaces.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	ledgerOpts []ledger.Option
}

type Option func(*TokenService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *TokenService) { s.logger = logger }
}

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(s *TokenService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TokenService) { s.metrics = m }
}

// WithLedgerOptions passes extra options to the underlying ledger. The
// journal option is always set by the service.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(s *TokenService) { s.ledgerOpts = append(s.ledgerOpts, opts...) }
}

// Result is the outcome of Execute. Replayed is set when the idempotency key
// had already been used and the stored operation is returned instead.
type Result struct {
	Operation models.Operation `json:"operation"`
	Replayed  bool             `json:"replayed"`
}

// TokenInfo is the public token state.
type TokenInfo struct {
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	Decimals        int32           `json:"decimals"`
	TotalSupply     decimal.Decimal `json:"total_supply"`
	Minter          common.Address  `json:"minter"`
	MintingFinished bool            `json:"minting_finished"`
	Seq             int64           `json:"seq"`
}

// NewTokenService deploys a ledger owned by deployer that journals to store.
// Call Restore before serving requests when the store may hold history.
func NewTokenService(deployer common.Address, store interfaces.JournalStore, opts ...Option) (*TokenService, error) {
	s := &TokenService{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	l, err := ledger.NewLedger(deployer, append(s.ledgerOpts, ledger.WithJournal(store))...)
	if err != nil {
		return nil, fmt.Errorf("deploy ledger: %w", err)
	}
	s.ledger = l
	s.metrics.SetState(l.TotalSupply(), l.Decimals(), l.Seq())
	return s, nil
}

// Restore replays the journal into the ledger.
func (s *TokenService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops, err := s.store.GetOperations(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	if err := s.ledger.Replay(ctx, ops); err != nil {
		return err
	}

	s.metrics.SetState(s.ledger.TotalSupply(), s.ledger.Decimals(), s.ledger.Seq())
	s.logger.Info("journal restored", "operations", len(ops), "seq", s.ledger.Seq())
	return nil
}

// Execute applies op. A non-empty idempotencyKey that was already used returns
// the original operation without applying op again.
func (s *TokenService) Execute(ctx context.Context, op models.Operation, idempotencyKey string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempotencyKey != "" {
		exists, err := s.store.OperationExists(ctx, idempotencyKey)
		if err != nil {
			return Result{}, fmt.Errorf("check idempotency key: %w", err)
		}
		if exists {
			return s.replayed(ctx, op, idempotencyKey)
		}
		op.IdempotencyKey = idempotencyKey
	}

	applied, err := s.ledger.Apply(ctx, op)
	if err != nil {
		if kind := ledger.KindOf(err); kind != "" {
			s.metrics.ObserveOperation(op.Kind, metrics.OutcomeRejected)
			s.metrics.ObserveRejection(string(kind))
			s.logger.Debug("operation rejected", "kind", op.Kind, "caller", op.Caller.Hex(), "reason", kind)
		} else {
			s.metrics.ObserveOperation(op.Kind, metrics.OutcomeFailed)
			s.logger.Error("operation failed", "kind", op.Kind, "caller", op.Caller.Hex(), "error", err)
		}
		return Result{}, err
	}

	s.metrics.ObserveOperation(applied.Kind, metrics.OutcomeApplied)
	s.metrics.SetState(s.ledger.TotalSupply(), s.ledger.Decimals(), applied.Seq)
	s.logger.Info("operation applied",
		"kind", applied.Kind,
		"seq", applied.Seq,
		"id", applied.ID,
		"caller", applied.Caller.Hex(),
		"amount", applied.Amount.String(),
	)

	s.publish(ctx, applied)
	return Result{Operation: applied}, nil
}

func (s *TokenService) replayed(ctx context.Context, op models.Operation, key string) (Result, error) {
	prev, err := s.store.GetOperation(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("load operation for idempotency key: %w", err)
	}
	amount, err := ledger.NormalizeAmount(op.Amount)
	if err != nil {
		return Result{}, err
	}
	if !samePayload(prev, op, amount) {
		return Result{}, fmt.Errorf("%w: key %q was used by %s seq %d", ErrIdempotencyConflict, key, prev.Kind, prev.Seq)
	}
	s.metrics.ObserveOperation(op.Kind, metrics.OutcomeReplayed)
	s.logger.Info("operation replayed", "kind", prev.Kind, "seq", prev.Seq, "idempotency_key", key)
	return Result{Operation: prev, Replayed: true}, nil
}

// samePayload reports whether op asks for what prev recorded.
func samePayload(prev, op models.Operation, amount decimal.Decimal) bool {
	return prev.Kind == op.Kind &&
		prev.Caller == op.Caller &&
		prev.From == op.From &&
		prev.To == op.To &&
		prev.Spender == op.Spender &&
		prev.Amount.Equal(amount)
}

func (s *TokenService) Info() TokenInfo {
	st := s.ledger.State()
	return TokenInfo{
		Name:            st.Name,
		Symbol:          st.Symbol,
		Decimals:        st.Decimals,
		TotalSupply:     st.TotalSupply,
		Minter:          st.Minter,
		MintingFinished: st.Minting.Finished(),
		Seq:             st.Seq,
	}
}

func (s *TokenService) BalanceOf(account common.Address) decimal.Decimal {
	return s.ledger.BalanceOf(account)
}

func (s *TokenService) Allowance(owner, spender common.Address) decimal.Decimal {
	return s.ledger.Allowance(owner, spender)
}

func (s *TokenService) TotalSupply() decimal.Decimal {
	return s.ledger.TotalSupply()
}

func (s *TokenService) Decimals() int32 {
	return s.ledger.Decimals()
}

// History returns journaled operations, all of them when account is nil.
func (s *TokenService) History(ctx context.Context, account *common.Address) ([]models.Operation, error) {
	if account == nil {
		return s.store.GetOperations(ctx)
	}
	return s.store.GetOperationsByAccount(ctx, *account)
}

// CheckInvariants exposes the ledger's conservation check for health probes.
func (s *TokenService) CheckInvariants() error {
	return s.ledger.CheckInvariants()
}
