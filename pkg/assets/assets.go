// Package assets holds the per-network asset allow-lists and contract addresses.
package assets

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const (
	MainnetChainID int64 = 1
	SepoliaChainID int64 = 11155111
)

// Receiver contracts accepting shop payments
var (
	ReceiverMainnet = common.HexToAddress("0x3AB6d76E56FD27A32A2dEc87820681AA40395f4C")
	ReceiverSepolia = common.HexToAddress("0x6ffBe5FbAcd16CF99DEec29Fb44057770Fbd9302")
)

// MainnetSymbols is the mainnet allow-list; token list results are sorted by this order.
var MainnetSymbols = []string{
	"USDT", "USDC", "BUSD", "DAI", "WBTC", "UNI", "LINK", "MKR", "AAVE",
	"COMP", "YFI", "SUSHI", "SNX", "ZRX", "BAT", "UMA", "MANA", "ENJ", "REN",
}

// Ether on the given chain
func Ether(chainID int64) types.Asset {
	return types.Asset{
		Address:  types.NativeAddress,
		ChainID:  chainID,
		Decimals: 18,
		Symbol:   "ETH",
		Name:     "Ether",
	}
}

// TestnetTokens is the fixed testnet list
func TestnetTokens() []types.Asset {
	return []types.Asset{
		Ether(SepoliaChainID),
		{
			Address:  common.HexToAddress("0x779877A7B0D9E8603169DdbD7836e478b4624789"),
			ChainID:  SepoliaChainID,
			Decimals: 18,
			Symbol:   "LINK",
			Name:     "Link",
		},
		{
			Address:  common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
			ChainID:  MainnetChainID,
			Decimals: 6,
			Symbol:   "USDC",
			Name:     "USDC",
			LogoURI:  "https://assets.coingecko.com/coins/images/6319/thumb/usdc.png?1696506694",
		},
	}
}

// Receiver returns the shop receiver contract for the network
func Receiver(testnet bool) common.Address {
	if testnet {
		return ReceiverSepolia
	}
	return ReceiverMainnet
}

// PreferredToken is the ERC-20 the shop prices items in for the network
func PreferredToken(testnet bool) string {
	if testnet {
		return "LINK"
	}
	return "USDC"
}

// ReferenceStable reports whether the symbol tracks the reference currency (USD)
func ReferenceStable(symbol string) bool {
	switch strings.ToUpper(symbol) {
	case "USDC", "USDT", "DAI", "BUSD":
		return true
	default:
		return false
	}
}

// Find looks up a symbol in a list, trying an exact match first
func Find(list []types.Asset, symbol string) (types.Asset, error) {
	for _, a := range list {
		if a.Is(symbol) {
			return a, nil
		}
	}
	return types.Asset{}, fmt.Errorf("%w: token '%s' not found", types.ErrInvalidInput, symbol)
}
