package types

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the sentinel address aggregators use for the chain's native currency
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Asset is a fungible token or the chain's native currency
type Asset struct {
	Address  common.Address `json:"address"`
	ChainID  int64          `json:"chainId"`
	Decimals int32          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	LogoURI  string         `json:"logoURI,omitempty"`
}

// IsNative reports whether the asset is the chain's native currency
func (a Asset) IsNative() bool {
	return a.Address == NativeAddress || a.Address == (common.Address{})
}

// IsZero reports whether the asset was never resolved
func (a Asset) IsZero() bool {
	return a.Symbol == "" && a.Address == (common.Address{})
}

// Is compares symbols case-insensitively
func (a Asset) Is(symbol string) bool {
	return strings.EqualFold(a.Symbol, symbol)
}

// String returns the display symbol
func (a Asset) String() string {
	return a.Symbol
}
