package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// Journal receives every operation after its checks pass and before its
// effects are committed. A Journal error aborts the operation.
type Journal interface {
	SaveOperation(ctx context.Context, op models.Operation) error
}

// Ledger owns balances, allowances, total supply and the minting latch.
// Writes are serialized; an operation either commits fully or leaves state
// untouched.
type Ledger struct {
	mu sync.RWMutex

	name     string
	symbol   string
	decimals int32
	minter   common.Address

	balances    map[common.Address]decimal.Decimal
	allowances  map[common.Address]map[common.Address]decimal.Decimal
	totalSupply decimal.Decimal
	minting     MintingState
	seq         int64

	journal Journal
	now     func() time.Time
}

// Option configures a Ledger at construction.
type Option func(*config)

type config struct {
	name     string
	symbol   string
	decimals int32
	genesis  decimal.Decimal
	journal  Journal
	now      func() time.Time
}

// WithMetadata overrides the token name, symbol and decimals.
func WithMetadata(name, symbol string, decimals int32) Option {
	return func(c *config) {
		c.name = name
		c.symbol = symbol
		c.decimals = decimals
	}
}

// WithGenesisSupply sets the base-unit supply credited to the deployer.
func WithGenesisSupply(amount decimal.Decimal) Option {
	return func(c *config) { c.genesis = amount }
}

// WithJournal records every applied operation.
func WithJournal(j Journal) Option {
	return func(c *config) { c.journal = j }
}

// WithClock sets the time source used to stamp operations.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// NewLedger creates a ledger whose genesis supply belongs to deployer, who is
// also the minter.
func NewLedger(deployer common.Address, opts ...Option) (*Ledger, error) {
	cfg := config{
		name:     DefaultName,
		symbol:   DefaultSymbol,
		decimals: DefaultDecimals,
		genesis:  DefaultGenesisSupply(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if deployer == (common.Address{}) {
		return nil, fmt.Errorf("%w: deployer", ErrAddressZero)
	}
	genesis, err := NormalizeAmount(cfg.genesis)
	if err != nil {
		return nil, fmt.Errorf("genesis supply: %w", err)
	}
	if cfg.decimals < 0 {
		return nil, fmt.Errorf("ledger: negative decimals %d", cfg.decimals)
	}

	l := &Ledger{
		name:        cfg.name,
		symbol:      cfg.symbol,
		decimals:    cfg.decimals,
		minter:      deployer,
		balances:    make(map[common.Address]decimal.Decimal),
		allowances:  make(map[common.Address]map[common.Address]decimal.Decimal),
		totalSupply: genesis,
		minting:     MintingActive,
		journal:     cfg.journal,
		now:         cfg.now,
	}
	l.credit(deployer, genesis)
	return l, nil
}

func (l *Ledger) Name() string   { return l.name }
func (l *Ledger) Symbol() string { return l.symbol }
func (l *Ledger) Decimals() int32 {
	return l.decimals
}

// Minter returns the identity allowed to mint, burn and finish minting.
func (l *Ledger) Minter() common.Address { return l.minter }

func (l *Ledger) BalanceOf(account common.Address) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceOf(account)
}

func (l *Ledger) TotalSupply() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply
}

func (l *Ledger) Allowance(owner, spender common.Address) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowance(owner, spender)
}

func (l *Ledger) MintingState() MintingState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minting
}

// Seq returns the sequence number of the last applied operation.
func (l *Ledger) Seq() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.seq
}

// State is the token summary at a single sequence number.
type State struct {
	Name        string
	Symbol      string
	Decimals    int32
	Minter      common.Address
	TotalSupply decimal.Decimal
	Minting     MintingState
	Seq         int64
}

// State reads every summary field under one lock.
func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return State{
		Name:        l.name,
		Symbol:      l.symbol,
		Decimals:    l.decimals,
		Minter:      l.minter,
		TotalSupply: l.totalSupply,
		Minting:     l.minting,
		Seq:         l.seq,
	}
}

// CheckInvariants verifies that balances sum to the total supply and that the
// zero address holds nothing.
func (l *Ledger) CheckInvariants() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var errs []error
	sum := decimal.Zero
	for account, bal := range l.balances {
		if bal.IsNegative() {
			errs = append(errs, fmt.Errorf("ledger: negative balance %s for %s", bal, account.Hex()))
		}
		sum = sum.Add(bal)
	}
	if !sum.Equal(l.totalSupply) {
		errs = append(errs, fmt.Errorf("ledger: balances sum to %s, total supply is %s", sum, l.totalSupply))
	}
	if z := l.balanceOf(common.Address{}); !z.IsZero() {
		errs = append(errs, fmt.Errorf("ledger: zero address holds %s", z))
	}
	return errors.Join(errs...)
}

func (l *Ledger) Transfer(ctx context.Context, caller, to common.Address, amount decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewTransfer(caller, to, amount))
	return err
}

// Approve sets the allowance of spender over caller's balance to amount.
// The previous allowance is replaced, not added to.
func (l *Ledger) Approve(ctx context.Context, caller, spender common.Address, amount decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewApprove(caller, spender, amount))
	return err
}

func (l *Ledger) IncreaseAllowance(ctx context.Context, caller, spender common.Address, added decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewIncreaseAllowance(caller, spender, added))
	return err
}

func (l *Ledger) DecreaseAllowance(ctx context.Context, caller, spender common.Address, subtracted decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewDecreaseAllowance(caller, spender, subtracted))
	return err
}

func (l *Ledger) TransferFrom(ctx context.Context, caller, owner, to common.Address, amount decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewTransferFrom(caller, owner, to, amount))
	return err
}

func (l *Ledger) Mint(ctx context.Context, caller, to common.Address, amount decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewMint(caller, to, amount))
	return err
}

func (l *Ledger) Burn(ctx context.Context, caller, from common.Address, amount decimal.Decimal) error {
	_, err := l.Apply(ctx, models.NewBurn(caller, from, amount))
	return err
}

func (l *Ledger) FinishMinting(ctx context.Context, caller common.Address) error {
	_, err := l.Apply(ctx, models.NewFinishMinting(caller))
	return err
}

// Apply validates op, journals it and commits its effects. The returned
// operation carries the assigned ID, Seq and CreatedAt.
func (l *Ledger) Apply(ctx context.Context, op models.Operation) (models.Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.apply(ctx, op, true)
}

// Replay re-applies journaled operations without journaling them again.
// Operations must arrive in sequence order starting right after Seq().
func (l *Ledger) Replay(ctx context.Context, ops []models.Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, op := range ops {
		if op.Seq != l.seq+1 {
			return fmt.Errorf("%w: got %d, want %d", ErrOutOfSequence, op.Seq, l.seq+1)
		}
		if _, err := l.apply(ctx, op, false); err != nil {
			return fmt.Errorf("ledger: replay seq %d: %w", op.Seq, err)
		}
	}
	return nil
}

func (l *Ledger) apply(ctx context.Context, op models.Operation, record bool) (models.Operation, error) {
	if err := ctx.Err(); err != nil {
		return op, err
	}

	amount, err := NormalizeAmount(op.Amount)
	if err != nil {
		return op, err
	}
	op.Amount = amount

	commit, err := l.stage(op)
	if err != nil {
		return op, err
	}

	op.Seq = l.seq + 1
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = l.now().UTC()
	}

	if record && l.journal != nil {
		if err := l.journal.SaveOperation(ctx, op); err != nil {
			return op, fmt.Errorf("ledger: journal operation %d: %w", op.Seq, err)
		}
	}

	commit()
	l.seq = op.Seq
	return op, nil
}

func (l *Ledger) balanceOf(account common.Address) decimal.Decimal {
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return decimal.Zero
}

func (l *Ledger) allowance(owner, spender common.Address) decimal.Decimal {
	if byOwner, ok := l.allowances[owner]; ok {
		if a, ok := byOwner[spender]; ok {
			return a
		}
	}
	return decimal.Zero
}

func (l *Ledger) credit(account common.Address, amount decimal.Decimal) {
	l.setBalance(account, l.balanceOf(account).Add(amount))
}

func (l *Ledger) debit(account common.Address, amount decimal.Decimal) {
	l.setBalance(account, l.balanceOf(account).Sub(amount))
}

func (l *Ledger) setBalance(account common.Address, bal decimal.Decimal) {
	if bal.IsZero() {
		delete(l.balances, account)
		return
	}
	l.balances[account] = bal
}

func (l *Ledger) setAllowance(owner, spender common.Address, amount decimal.Decimal) {
	byOwner, ok := l.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]decimal.Decimal)
		l.allowances[owner] = byOwner
	}
	byOwner[spender] = amount
}
