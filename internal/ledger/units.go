package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultName     = "Tamtoken"
	DefaultSymbol   = "TAM"
	DefaultDecimals = int32(18)
)

// GenesisTokens is the whole-token supply credited to the deployer.
var GenesisTokens = decimal.RequireFromString("900000000000000000")

// DefaultGenesisSupply is GenesisTokens expressed in base units.
func DefaultGenesisSupply() decimal.Decimal {
	return GenesisTokens.Shift(DefaultDecimals)
}

// MaxAmount is the largest representable amount, 2^256-1 base units. Balances,
// allowances and the total supply never exceed it.
var MaxAmount = decimal.NewFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)), 0)

// maxAmountDigits is the number of decimal digits in MaxAmount.
const maxAmountDigits = 78

// ParseUnits converts a whole-token amount such as "10" or "0.5" into base
// units with the given number of decimals.
func ParseUnits(s string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v, err := NormalizeAmount(d.Shift(decimals))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q with %d decimals", err, s, decimals)
	}
	return v, nil
}

// ParseBaseUnits parses an amount already expressed in base units.
func ParseBaseUnits(s string) (decimal.Decimal, error) {
	return ParseUnits(s, 0)
}

// FormatUnits renders base units as a whole-token amount.
func FormatUnits(amount decimal.Decimal, decimals int32) string {
	return amount.Shift(-decimals).String()
}

// NormalizeAmount checks that amount is a whole number in [0, MaxAmount] and
// returns it with a zero exponent. The exponent is bounded before any
// rescaling, so inputs like 1e20000000 fail without being expanded.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	coef := amount.Coefficient()
	exp := int64(amount.Exponent())

	switch coef.Sign() {
	case 0:
		return decimal.Zero, nil
	case -1:
		return decimal.Zero, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, brief(amount))
	}

	digits := int64(len(coef.String()))
	if exp < 0 {
		// Fewer digits than fractional places means a non-zero value below one.
		if -exp > digits {
			return decimal.Zero, fmt.Errorf("%w: fractional amount %s", ErrInvalidAmount, brief(amount))
		}
		var rem big.Int
		coef.QuoRem(coef, pow10(-exp), &rem)
		if rem.Sign() != 0 {
			return decimal.Zero, fmt.Errorf("%w: fractional amount %s", ErrInvalidAmount, brief(amount))
		}
		exp = 0
		digits = int64(len(coef.String()))
	}

	if digits+exp > maxAmountDigits {
		return decimal.Zero, fmt.Errorf("%w: amount %s exceeds 2^256-1", ErrInvalidAmount, brief(amount))
	}
	coef.Mul(coef, pow10(exp))

	v := decimal.NewFromBigInt(coef, 0)
	if v.GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: amount %s exceeds 2^256-1", ErrInvalidAmount, brief(amount))
	}
	return v, nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

// brief renders amount without expanding a large exponent.
func brief(amount decimal.Decimal) string {
	if exp := amount.Exponent(); exp > maxAmountDigits || exp < -maxAmountDigits {
		return fmt.Sprintf("%se%d", amount.Coefficient(), exp)
	}
	return amount.String()
}
