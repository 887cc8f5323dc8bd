package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PriceInput is the (sell, buy, amount) triple a Quote is valid for
type PriceInput struct {
	Sell   Asset
	Buy    Asset
	Amount string // human-readable sell amount
}

// Equal reports whether two inputs would produce the same quote
func (p PriceInput) Equal(o PriceInput) bool {
	return p.Sell.Address == o.Sell.Address &&
		p.Sell.ChainID == o.Sell.ChainID &&
		p.Buy.Address == o.Buy.Address &&
		p.Buy.ChainID == o.Buy.ChainID &&
		p.Amount == o.Amount
}

// Quote is a time-bounded, non-binding price estimate.
// It is valid only for the Input that produced it.
type Quote struct {
	Input           PriceInput
	SellAmount      *big.Int
	BuyAmount       *big.Int
	Price           decimal.Decimal
	GasPrice        *big.Int
	EstimatedGas    uint64
	AllowanceTarget common.Address

	// Token amount per one unit of the native asset, as reported by the aggregator.
	SellTokenToNativeRate decimal.Decimal
	BuyTokenToNativeRate  decimal.Decimal

	ResolvedAt time.Time
}

// Matches reports whether the quote was resolved for the given input
func (q *Quote) Matches(in PriceInput) bool {
	return q != nil && q.Input.Equal(in)
}

// BuyAmountFormatted renders the buy amount in the buy asset's units
func (q *Quote) BuyAmountFormatted() string {
	return FormatUnits(q.BuyAmount, q.Input.Buy.Decimals, 8)
}

// BindingQuote is a firm quote carrying the transaction the taker must send
type BindingQuote struct {
	Quote
	Taker common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
	Gas   uint64
}

// Fee is the estimated network fee for a quote
type Fee struct {
	Native decimal.Decimal // in native units (e.g. ETH)

	// Reference is the fee in the reference currency; nil when no rate for the
	// native asset is known.
	Reference *decimal.Decimal
}
