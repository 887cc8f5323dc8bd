// Package session holds the connected wallet and chain provider for one run.
// Components receive a *Session instead of reading global state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

// Params describes how to connect
type Params struct {
	RPCURL     string
	PrivateKey string // optional; without it the session is read-only
	Testnet    bool

	// Confirm, when set, is asked before every signature
	Confirm chain.ConfirmFunc
}

// Session is a connected wallet on one network
type Session struct {
	provider chain.Provider
	signer   chain.Signer
	testnet  bool
	closer   func()

	mu     sync.RWMutex
	closed bool
}

// Connect dials the RPC endpoint and loads the wallet
func Connect(ctx context.Context, p Params, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.RPCURL == "" {
		return nil, fmt.Errorf("%w: rpc url is required", types.ErrNotConnected)
	}

	var signer chain.Signer
	if p.PrivateKey != "" {
		key, err := chain.ParseKeySigner(p.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrNotConnected, err)
		}
		signer = key
		if p.Confirm != nil {
			signer = chain.NewPromptSigner(key, p.Confirm)
		}
	}

	client, err := ethclient.DialContext(ctx, p.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to dial %s: %v", types.ErrNotConnected, p.RPCURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to read chain id: %v", types.ErrNotConnected, err)
	}

	expected := assets.MainnetChainID
	if p.Testnet {
		expected = assets.SepoliaChainID
	}
	if chainID.Int64() != expected {
		logger.Warn("rpc endpoint is on an unexpected network",
			zap.Int64("chain_id", chainID.Int64()),
			zap.Int64("expected", expected))
	}

	s := New(client, signer, p.Testnet)
	s.closer = client.Close

	fields := []zap.Field{zap.Int64("chain_id", chainID.Int64()), zap.Bool("testnet", p.Testnet)}
	if signer != nil {
		fields = append(fields, zap.String("wallet", signer.Address().Hex()))
	}
	logger.Debug("session connected", fields...)

	return s, nil
}

// New creates a session over an existing provider. signer may be nil.
func New(provider chain.Provider, signer chain.Signer, testnet bool) *Session {
	return &Session{
		provider: provider,
		signer:   signer,
		testnet:  testnet,
	}
}

// Provider returns the chain provider
func (s *Session) Provider() (chain.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.provider == nil {
		return nil, types.ErrNotConnected
	}
	return s.provider, nil
}

// Signer returns the wallet signer
func (s *Session) Signer() (chain.Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.signer == nil {
		return nil, fmt.Errorf("%w: no wallet", types.ErrNotConnected)
	}
	return s.signer, nil
}

// Wallet returns the connected address
func (s *Session) Wallet() (common.Address, error) {
	signer, err := s.Signer()
	if err != nil {
		return common.Address{}, err
	}
	return signer.Address(), nil
}

// Testnet reports whether the session runs on the test network
func (s *Session) Testnet() bool {
	return s.testnet
}

// Connected reports whether the session is usable
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.provider != nil
}

// Close tears the session down. Broadcast transactions are not affected.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.closer != nil {
		s.closer()
	}
}
