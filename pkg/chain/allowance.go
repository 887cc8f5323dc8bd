package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

// AllowanceState is the result of comparing a live allowance with a required spend
type AllowanceState string

const (
	AllowanceSufficient   AllowanceState = "sufficient"
	AllowanceInsufficient AllowanceState = "insufficient"
)

// AllowanceManager makes sure a spender may move an ERC-20 amount for the owner
type AllowanceManager struct {
	provider  Provider
	submitter *Submitter
	watcher   *Watcher
	logger    *zap.Logger
}

// NewAllowanceManager creates an allowance manager
func NewAllowanceManager(provider Provider, submitter *Submitter, watcher *Watcher, logger *zap.Logger) *AllowanceManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllowanceManager{
		provider:  provider,
		submitter: submitter,
		watcher:   watcher,
		logger:    logger,
	}
}

// Check reads the current allowance from the chain and compares it in base units.
// It always reads; earlier approvals may have been revoked or consumed.
func (m *AllowanceManager) Check(ctx context.Context, owner, spender common.Address, token types.Asset, required *big.Int) (AllowanceState, *big.Int, error) {
	if token.IsNative() {
		return "", nil, fmt.Errorf("%w: native %s has no allowance", types.ErrInvalidInput, token.Symbol)
	}
	if required == nil || required.Sign() <= 0 {
		return "", nil, fmt.Errorf("%w: required amount must be greater than 0", types.ErrInvalidInput)
	}

	current, err := Allowance(ctx, m.provider, token.Address, owner, spender)
	if err != nil {
		return "", nil, err
	}

	state := AllowanceInsufficient
	if current.Cmp(required) >= 0 {
		state = AllowanceSufficient
	}

	m.logger.Debug("allowance checked",
		zap.String("token", token.Symbol),
		zap.String("spender", spender.Hex()),
		zap.String("current", current.String()),
		zap.String("required", required.String()),
		zap.String("state", string(state)))

	return state, current, nil
}

// Approval is a broadcast approve transaction
type Approval struct {
	Hash   common.Hash
	Intent types.TransactionIntent
}

// Approve submits approve(spender, amount) and returns once the provider accepted it
func (m *AllowanceManager) Approve(ctx context.Context, owner, spender common.Address, token types.Asset, amount *big.Int) (*Approval, error) {
	if token.IsNative() {
		return nil, fmt.Errorf("%w: native %s has no allowance", types.ErrInvalidInput, token.Symbol)
	}

	data, err := PackApprove(spender, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to pack approve data: %v", types.ErrApprovalFailed, err)
	}

	intent := types.TransactionIntent{
		Kind:  types.IntentContractCall,
		From:  owner,
		To:    token.Address,
		Value: new(big.Int),
		Data:  data,
	}

	prepared, hash, err := m.submitter.Send(ctx, intent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrApprovalFailed, err)
	}

	return &Approval{Hash: hash, Intent: prepared}, nil
}

// AwaitApproval waits for an approval to be mined and checks it succeeded
func (m *AllowanceManager) AwaitApproval(ctx context.Context, approval *Approval) (*ethtypes.Receipt, error) {
	receipt, err := m.watcher.Await(ctx, approval.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrApprovalFailed, err)
	}
	if !Succeeded(receipt) {
		return receipt, fmt.Errorf("%w: %w: approve %s", types.ErrApprovalFailed, types.ErrOnChainRevert, approval.Hash.Hex())
	}
	return receipt, nil
}

// Ensure checks the allowance and, when insufficient, approves exactly required
// and waits for the approval to be mined. It returns the state observed before approving.
func (m *AllowanceManager) Ensure(ctx context.Context, owner, spender common.Address, token types.Asset, required *big.Int) (AllowanceState, error) {
	state, _, err := m.Check(ctx, owner, spender, token, required)
	if err != nil {
		return "", err
	}
	if state == AllowanceSufficient {
		return state, nil
	}

	approval, err := m.Approve(ctx, owner, spender, token, required)
	if err != nil {
		return state, err
	}
	if _, err := m.AwaitApproval(ctx, approval); err != nil {
		return state, err
	}
	return state, nil
}
