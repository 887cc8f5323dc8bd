package orchestrator

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const nativeDecimals = 18

// ComputeFee estimates the network fee of a quote. Gas is always paid in the
// native asset, so the reference figure needs a native-to-USD rate: a
// USD-stable token on either side of the quote provides one.
func ComputeFee(q *types.Quote) types.Fee {
	if q == nil || q.GasPrice == nil {
		return types.Fee{}
	}

	wei := new(big.Int).Mul(q.GasPrice, new(big.Int).SetUint64(q.EstimatedGas))
	fee := types.Fee{Native: types.FromBaseUnits(wei, nativeDecimals)}

	if rate, ok := nativeReferenceRate(q); ok {
		reference := fee.Native.Mul(rate)
		fee.Reference = &reference
	}

	return fee
}

// nativeReferenceRate is the USD price of one unit of the native asset
func nativeReferenceRate(q *types.Quote) (decimal.Decimal, bool) {
	if assets.ReferenceStable(q.Input.Buy.Symbol) && q.BuyTokenToNativeRate.IsPositive() {
		return q.BuyTokenToNativeRate, true
	}
	if assets.ReferenceStable(q.Input.Sell.Symbol) && q.SellTokenToNativeRate.IsPositive() {
		return q.SellTokenToNativeRate, true
	}
	return decimal.Zero, false
}
