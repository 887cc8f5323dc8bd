package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const erc20JSON = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// Shop receiver contract; native payments go to its receive function
const receiverJSON = `[
	{"inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI    = mustParseABI(erc20JSON)
	receiverABI = mustParseABI(receiverJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

// PackApprove encodes approve(spender, amount)
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}

// PackDeposit encodes the receiver's deposit(token, amount)
func PackDeposit(token common.Address, amount *big.Int) ([]byte, error) {
	return receiverABI.Pack("deposit", token, amount)
}

// Allowance reads the live ERC-20 allowance of spender over owner's tokens
func Allowance(ctx context.Context, caller Provider, token, owner, spender common.Address) (*big.Int, error) {
	return callUint(ctx, caller, token, "allowance", owner, spender)
}

// Balance returns owner's balance of asset in base units
func Balance(ctx context.Context, provider Provider, owner common.Address, asset types.Asset) (*big.Int, error) {
	if asset.IsNative() {
		balance, err := provider.BalanceAt(ctx, owner, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
		return balance, nil
	}
	return callUint(ctx, provider, asset.Address, "balanceOf", owner)
}

func callUint(ctx context.Context, caller Provider, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	result, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, out[0])
	}
	return value, nil
}
