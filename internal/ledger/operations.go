package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// stage runs every check of op against current state and returns the
// mutation to perform. Nothing is written until the mutation is called.
// op.Amount must already be normalized.
func (l *Ledger) stage(op models.Operation) (func(), error) {
	switch op.Kind {
	case models.KindTransfer:
		return l.stageTransfer(op)
	case models.KindApprove:
		return l.stageApprove(op)
	case models.KindIncreaseAllowance:
		return l.stageIncreaseAllowance(op)
	case models.KindDecreaseAllowance:
		return l.stageDecreaseAllowance(op)
	case models.KindTransferFrom:
		return l.stageTransferFrom(op)
	case models.KindMint:
		return l.stageMint(op)
	case models.KindBurn:
		return l.stageBurn(op)
	case models.KindFinishMinting:
		return l.stageFinishMinting(op)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Kind)
	}
}

// The destination is checked before the balance.
func (l *Ledger) stageTransfer(op models.Operation) (func(), error) {
	if op.To == (common.Address{}) {
		return nil, ErrAddressZero
	}
	if err := l.requireBalance(op.Caller, op); err != nil {
		return nil, err
	}
	return func() {
		l.debit(op.Caller, op.Amount)
		l.credit(op.To, op.Amount)
	}, nil
}

func (l *Ledger) stageApprove(op models.Operation) (func(), error) {
	return func() {
		l.setAllowance(op.Caller, op.Spender, op.Amount)
	}, nil
}

func (l *Ledger) stageIncreaseAllowance(op models.Operation) (func(), error) {
	next := l.allowance(op.Caller, op.Spender).Add(op.Amount)
	if next.GreaterThan(MaxAmount) {
		return nil, fmt.Errorf("%w: allowance of %s for %s would exceed 2^256-1",
			ErrInvalidAmount, op.Caller.Hex(), op.Spender.Hex())
	}
	return func() {
		l.setAllowance(op.Caller, op.Spender, next)
	}, nil
}

// Decreasing below zero is rejected, never clamped.
func (l *Ledger) stageDecreaseAllowance(op models.Operation) (func(), error) {
	current := l.allowance(op.Caller, op.Spender)
	if current.LessThan(op.Amount) {
		return nil, fmt.Errorf("%w: allowance of %s for %s is %s, cannot decrease by %s",
			ErrInsufficientToken, op.Caller.Hex(), op.Spender.Hex(), current, op.Amount)
	}
	next := current.Sub(op.Amount)
	return func() {
		l.setAllowance(op.Caller, op.Spender, next)
	}, nil
}

// An allowance shortfall wins over a balance shortfall.
func (l *Ledger) stageTransferFrom(op models.Operation) (func(), error) {
	granted := l.allowance(op.From, op.Caller)
	if granted.LessThan(op.Amount) {
		return nil, fmt.Errorf("%w: %s may spend %s of %s, requested %s",
			ErrInsufficientAllowance, op.Caller.Hex(), granted, op.From.Hex(), op.Amount)
	}
	if op.To == (common.Address{}) {
		return nil, ErrAddressZero
	}
	if err := l.requireBalance(op.From, op); err != nil {
		return nil, err
	}
	remaining := granted.Sub(op.Amount)
	return func() {
		l.debit(op.From, op.Amount)
		l.credit(op.To, op.Amount)
		l.setAllowance(op.From, op.Caller, remaining)
	}, nil
}

// The role is checked before the latch.
func (l *Ledger) stageMint(op models.Operation) (func(), error) {
	if err := l.requireMinter(op.Caller); err != nil {
		return nil, err
	}
	if l.minting.Finished() {
		return nil, ErrMintingHasFinished
	}
	if op.To == (common.Address{}) {
		return nil, ErrAddressZero
	}
	supply := l.totalSupply.Add(op.Amount)
	if supply.GreaterThan(MaxAmount) {
		return nil, fmt.Errorf("%w: total supply would exceed 2^256-1", ErrInvalidAmount)
	}
	return func() {
		l.credit(op.To, op.Amount)
		l.totalSupply = supply
	}, nil
}

func (l *Ledger) stageBurn(op models.Operation) (func(), error) {
	if err := l.requireMinter(op.Caller); err != nil {
		return nil, err
	}
	if err := l.requireBalance(op.From, op); err != nil {
		return nil, err
	}
	return func() {
		l.debit(op.From, op.Amount)
		l.totalSupply = l.totalSupply.Sub(op.Amount)
	}, nil
}

func (l *Ledger) stageFinishMinting(op models.Operation) (func(), error) {
	if err := l.requireMinter(op.Caller); err != nil {
		return nil, err
	}
	next, err := l.minting.Finish()
	if err != nil {
		return nil, err
	}
	return func() {
		l.minting = next
	}, nil
}

func (l *Ledger) requireMinter(caller common.Address) error {
	if caller != l.minter {
		return fmt.Errorf("%w: %s", ErrOnlyMinter, caller.Hex())
	}
	return nil
}

func (l *Ledger) requireBalance(account common.Address, op models.Operation) error {
	bal := l.balanceOf(account)
	if bal.LessThan(op.Amount) {
		return fmt.Errorf("%w: %s holds %s, %s needs %s",
			ErrInsufficientToken, account.Hex(), bal, op.Kind, op.Amount)
	}
	return nil
}
