package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"10", 18, "10000000000000000000"},
		{"0.5", 18, "500000000000000000"},
		{" 7 ", 0, "7"},
		{"1.25", 2, "125"},
		{"0", 18, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseUnitsRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "0.001"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseUnits(in, 2)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "10", FormatUnits(decimal.RequireFromString("10000000000000000000"), 18))
	assert.Equal(t, "0.5", FormatUnits(decimal.RequireFromString("500000000000000000"), 18))
	assert.Equal(t, "900000000000000000", FormatUnits(DefaultGenesisSupply(), DefaultDecimals))
}

func TestMintingStateTransitions(t *testing.T) {
	next, err := MintingActive.Finish()
	require.NoError(t, err)
	assert.Equal(t, MintingFinished, next)
	assert.Equal(t, "finished", next.String())

	_, err = next.Finish()
	assert.ErrorIs(t, err, ErrMintingHasFinished)
	assert.Equal(t, "active", MintingActive.String())
}

func TestMaxAmount(t *testing.T) {
	assert.Equal(t,
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
		MaxAmount.String())
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"0e99999999", "0"},
		{"1.000", "1"},
		{"12300e-2", "123"},
		{"5e3", "5000"},
		{MaxAmount.String(), MaxAmount.String()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAmount(decimal.RequireFromString(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, int32(0), got.Exponent())
		})
	}
}

func TestNormalizeAmountRejects(t *testing.T) {
	tests := []string{
		"-1",
		"0.5",
		"1e-20000000",
		"-1e20000000",
		"1e20000000",
		"1e78",
		MaxAmount.Add(decimal.NewFromInt(1)).String(),
	}
	for _, in := range tests {
		name := in
		if len(name) > 20 {
			name = name[:20]
		}
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeAmount(decimal.RequireFromString(in))
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Less(t, len(err.Error()), 200)
		})
	}
}
