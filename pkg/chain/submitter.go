package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

// GasBufferPercent is added to native-transfer gas estimates
const GasBufferPercent = 10

// Submitter builds, signs and broadcasts transactions
type Submitter struct {
	provider Provider
	signer   Signer
	logger   *zap.Logger
}

// NewSubmitter creates a submitter that signs with signer
func NewSubmitter(provider Provider, signer Signer, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{provider: provider, signer: signer, logger: logger}
}

// Prepare returns a copy of intent with sender, gas price and gas limit filled in.
// Native transfers get the estimate plus GasBufferPercent; contract calls get the
// provider's estimate as-is.
func (s *Submitter) Prepare(ctx context.Context, intent types.TransactionIntent) (types.TransactionIntent, error) {
	prepared := intent
	if prepared.From == (common.Address{}) {
		prepared.From = s.signer.Address()
	}
	if prepared.From != s.signer.Address() {
		return prepared, fmt.Errorf("%w: sender %s is not the connected wallet", types.ErrInvalidInput, prepared.From.Hex())
	}
	if prepared.Value == nil {
		prepared.Value = new(big.Int)
	}

	if prepared.GasPrice == nil {
		gasPrice, err := s.provider.SuggestGasPrice(ctx)
		if err != nil {
			return prepared, fmt.Errorf("%w: failed to get gas price: %v", types.ErrSubmissionFailed, err)
		}
		prepared.GasPrice = gasPrice
	}

	if prepared.GasLimit == 0 {
		to := prepared.To
		estimate, err := s.provider.EstimateGas(ctx, ethereum.CallMsg{
			From:  prepared.From,
			To:    &to,
			Value: prepared.Value,
			Data:  prepared.Data,
		})
		if err != nil {
			return prepared, fmt.Errorf("%w: gas estimation failed: %v", types.ErrSubmissionFailed, err)
		}

		switch prepared.Kind {
		case types.IntentNativeTransfer:
			prepared.GasLimit = estimate * (100 + GasBufferPercent) / 100
		default:
			prepared.GasLimit = estimate
		}
	}

	return prepared, nil
}

// Submit signs and broadcasts intent. The returned hash acknowledges that the
// provider accepted the transaction into its pool; it says nothing about inclusion.
func (s *Submitter) Submit(ctx context.Context, intent types.TransactionIntent) (common.Hash, error) {
	_, hash, err := s.Send(ctx, intent)
	return hash, err
}

// Send is Submit that also returns the prepared intent, with the gas limit and
// gas price that went on the wire.
func (s *Submitter) Send(ctx context.Context, intent types.TransactionIntent) (types.TransactionIntent, common.Hash, error) {
	prepared, err := s.Prepare(ctx, intent)
	if err != nil {
		return prepared, common.Hash{}, err
	}

	nonce, err := s.provider.PendingNonceAt(ctx, prepared.From)
	if err != nil {
		return prepared, common.Hash{}, fmt.Errorf("%w: failed to get nonce: %v", types.ErrSubmissionFailed, err)
	}

	chainID, err := s.provider.ChainID(ctx)
	if err != nil {
		return prepared, common.Hash{}, fmt.Errorf("%w: failed to get chain id: %v", types.ErrSubmissionFailed, err)
	}

	to := prepared.To
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    prepared.Value,
		Gas:      prepared.GasLimit,
		GasPrice: prepared.GasPrice,
		Data:     prepared.Data,
	})

	signed, err := s.signer.SignTx(ctx, tx, chainID)
	if err != nil {
		if errors.Is(err, types.ErrUserRejected) {
			return prepared, common.Hash{}, err
		}
		return prepared, common.Hash{}, fmt.Errorf("%w: %v", types.ErrSubmissionFailed, err)
	}

	if err := s.provider.SendTransaction(ctx, signed); err != nil {
		return prepared, common.Hash{}, fmt.Errorf("%w: %v", types.ErrSubmissionFailed, err)
	}

	s.logger.Info("transaction broadcast",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("kind", string(prepared.Kind)),
		zap.String("to", prepared.To.Hex()),
		zap.Uint64("gas", prepared.GasLimit),
		zap.Uint64("nonce", nonce))

	return prepared, signed.Hash(), nil
}
