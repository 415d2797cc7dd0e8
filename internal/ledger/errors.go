package ledger

import "errors"

// Failures of ledger operations. Every one of them leaves state unchanged.
var (
	ErrAddressZero           = errors.New("ledger: address zero")
	ErrInsufficientToken     = errors.New("ledger: insufficient token")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrOnlyMinter            = errors.New("ledger: only minter")
	ErrMintingHasFinished    = errors.New("ledger: minting has finished")
	ErrInvalidAmount         = errors.New("ledger: invalid amount")
	ErrUnknownOperation      = errors.New("ledger: unknown operation")
	ErrOutOfSequence         = errors.New("ledger: operation out of sequence")
)

// Kind is the stable, caller-facing name of a ledger failure.
type Kind string

const (
	KindAddressZero           Kind = "AddressZero"
	KindInsufficientToken     Kind = "InsufficientToken"
	KindInsufficientAllowance Kind = "InsufficientAllowance"
	KindOnlyMinter            Kind = "OnlyMinter"
	KindMintingHasFinished    Kind = "MintingHasFinished"
	KindInvalidAmount         Kind = "InvalidAmount"
	KindUnknownOperation      Kind = "UnknownOperation"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrAddressZero, KindAddressZero},
	{ErrInsufficientToken, KindInsufficientToken},
	{ErrInsufficientAllowance, KindInsufficientAllowance},
	{ErrOnlyMinter, KindOnlyMinter},
	{ErrMintingHasFinished, KindMintingHasFinished},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrUnknownOperation, KindUnknownOperation},
}

// KindOf returns the failure kind carried by err, or "" when err is not a
// ledger rejection (for example a journal write error).
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// IsRejection reports whether err is a ledger rule violation rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	return KindOf(err) != ""
}
