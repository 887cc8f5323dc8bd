package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human-readable amount to the asset's smallest unit,
// rounding to the nearest integer: round(amount * 10^decimals).
func ToBaseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidInput, amount)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidInput)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", ErrInvalidInput, decimals)
	}

	base := d.Shift(decimals).Round(0).BigInt()
	if base.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount %s is below the smallest unit", ErrInvalidInput, amount)
	}
	return base, nil
}

// FromBaseUnits converts smallest-unit integers back into a decimal amount
func FromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// FormatUnits renders a base-unit amount with at most places fractional digits
func FormatUnits(amount *big.Int, decimals int32, places int32) string {
	return FromBaseUnits(amount, decimals).Truncate(places).String()
}
