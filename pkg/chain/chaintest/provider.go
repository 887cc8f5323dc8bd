// Package chaintest provides an in-memory chain provider and a virtual clock for tests.
package chaintest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	selAllowance = crypto.Keccak256([]byte("allowance(address,address)"))[:4]
	selBalanceOf = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	selApprove   = crypto.Keccak256([]byte("approve(address,uint256)"))[:4]
	selDeposit   = crypto.Keccak256([]byte("deposit(address,uint256)"))[:4]
)

// Never marks a receipt that is never mined
const Never = -1

type allowanceKey struct {
	token, owner, spender common.Address
}

// Provider is a fake chain. Sent transactions get a receipt after MineAfter
// receipt polls (0 = on the first poll, Never = not at all).
type Provider struct {
	mu sync.Mutex

	ChainIDValue *big.Int
	GasPrice     *big.Int
	Estimate     uint64

	// MineAfter is the number of polls that return "not found" before the receipt appears.
	MineAfter int
	// Revert makes receipts for transactions whose calldata starts with the selector fail.
	Revert map[string]bool
	// PollErr is returned by TransactionReceipt instead of "not found" while set.
	PollErr error
	// SendErr makes SendTransaction fail.
	SendErr error
	// EstimateErr makes EstimateGas fail.
	EstimateErr error

	nonces     map[common.Address]uint64
	balances   map[common.Address]*big.Int
	tokens     map[[2]common.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	sent       []*ethtypes.Transaction
	estimates  []ethereum.CallMsg
	polls      map[common.Hash]int
	calls      map[string]int
}

// NewProvider creates a fake chain with id 1, 1 gwei gas price and 21000 gas estimates
func NewProvider() *Provider {
	return &Provider{
		ChainIDValue: big.NewInt(1),
		GasPrice:     big.NewInt(1_000_000_000),
		Estimate:     21000,
		Revert:       map[string]bool{},
		nonces:       map[common.Address]uint64{},
		balances:     map[common.Address]*big.Int{},
		tokens:       map[[2]common.Address]*big.Int{},
		allowances:   map[allowanceKey]*big.Int{},
		polls:        map[common.Hash]int{},
		calls:        map[string]int{},
	}
}

// RevertApprove makes approve transactions revert on chain
func (p *Provider) RevertApprove() { p.revert(selApprove) }

// RevertDeposit makes receiver deposit transactions revert on chain
func (p *Provider) RevertDeposit() { p.revert(selDeposit) }

func (p *Provider) revert(sel []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Revert[string(sel)] = true
}

// SetAllowance sets an ERC-20 allowance
func (p *Provider) SetAllowance(token, owner, spender common.Address, amount *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowances[allowanceKey{token, owner, spender}] = new(big.Int).Set(amount)
}

// SetBalance sets a native balance
func (p *Provider) SetBalance(owner common.Address, amount *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[owner] = new(big.Int).Set(amount)
}

// SetTokenBalance sets an ERC-20 balance
func (p *Provider) SetTokenBalance(token, owner common.Address, amount *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[[2]common.Address{token, owner}] = new(big.Int).Set(amount)
}

// Sent returns the broadcast transactions in order
func (p *Provider) Sent() []*ethtypes.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*ethtypes.Transaction(nil), p.sent...)
}

// Estimates returns the messages passed to EstimateGas
func (p *Provider) Estimates() []ethereum.CallMsg {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ethereum.CallMsg(nil), p.estimates...)
}

// Polls returns how many receipt queries were made for hash
func (p *Provider) Polls(hash common.Hash) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls[hash]
}

// Calls returns how many times method was called
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// IsApprove reports whether tx calls approve
func IsApprove(tx *ethtypes.Transaction) bool {
	return bytes.HasPrefix(tx.Data(), selApprove)
}

// IsDeposit reports whether tx calls deposit
func IsDeposit(tx *ethtypes.Transaction) bool {
	return bytes.HasPrefix(tx.Data(), selDeposit)
}

func (p *Provider) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(p.ChainIDValue), nil
}

func (p *Provider) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nonces[account], nil
}

func (p *Provider) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["SuggestGasPrice"]++
	return new(big.Int).Set(p.GasPrice), nil
}

func (p *Provider) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["EstimateGas"]++
	p.estimates = append(p.estimates, msg)
	if p.EstimateErr != nil {
		return 0, p.EstimateErr
	}
	return p.Estimate, nil
}

func (p *Provider) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["SendTransaction"]++
	if p.SendErr != nil {
		return p.SendErr
	}

	signer := ethtypes.LatestSignerForChainID(p.ChainIDValue)
	from, err := ethtypes.Sender(signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != p.nonces[from] {
		return errors.New("nonce too low")
	}
	p.nonces[from]++
	p.sent = append(p.sent, tx)

	// approvals take effect at broadcast unless they are set to revert
	data := tx.Data()
	if bytes.HasPrefix(data, selApprove) && !p.Revert[string(selApprove)] && len(data) >= 4+64 {
		spender := common.BytesToAddress(data[4:36])
		amount := new(big.Int).SetBytes(data[36:68])
		p.allowances[allowanceKey{*tx.To(), from, spender}] = amount
	}
	return nil
}

func (p *Provider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["TransactionReceipt"]++
	p.polls[txHash]++

	var tx *ethtypes.Transaction
	for _, sent := range p.sent {
		if sent.Hash() == txHash {
			tx = sent
			break
		}
	}

	if tx == nil || p.MineAfter == Never || p.polls[txHash] <= p.MineAfter {
		if p.PollErr != nil {
			return nil, p.PollErr
		}
		return nil, ethereum.NotFound
	}

	status := ethtypes.ReceiptStatusSuccessful
	if len(tx.Data()) >= 4 && p.Revert[string(tx.Data()[:4])] {
		status = ethtypes.ReceiptStatusFailed
	}
	return &ethtypes.Receipt{
		TxHash:      txHash,
		Status:      status,
		GasUsed:     tx.Gas(),
		BlockNumber: big.NewInt(100),
	}, nil
}

func (p *Provider) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (p *Provider) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls["CallContract"]++

	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("execution reverted")
	}
	token := *msg.To
	sel, args := msg.Data[:4], msg.Data[4:]

	var value *big.Int
	switch {
	case bytes.Equal(sel, selAllowance) && len(args) >= 64:
		key := allowanceKey{token, common.BytesToAddress(args[:32]), common.BytesToAddress(args[32:64])}
		value = p.allowances[key]
	case bytes.Equal(sel, selBalanceOf) && len(args) >= 32:
		value = p.tokens[[2]common.Address{token, common.BytesToAddress(args[:32])}]
	default:
		return nil, errors.New("execution reverted")
	}
	if value == nil {
		value = new(big.Int)
	}
	return common.LeftPadBytes(value.Bytes(), 32), nil
}

// Clock is a virtual clock whose Sleep advances time instantly
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a virtual clock at a fixed instant
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}
