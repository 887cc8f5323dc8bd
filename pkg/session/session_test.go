package session

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain/chaintest"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

func TestSessionLifecycle(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := chain.NewKeySigner(key)

	s := New(chaintest.NewProvider(), signer, true)
	assert.True(t, s.Connected())
	assert.True(t, s.Testnet())

	wallet, err := s.Wallet()
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), wallet)

	s.Close()
	s.Close()
	assert.False(t, s.Connected())

	_, err = s.Wallet()
	assert.True(t, errors.Is(err, types.ErrNotConnected))
	_, err = s.Provider()
	assert.True(t, errors.Is(err, types.ErrNotConnected))
}

func TestReadOnlySessionHasNoWallet(t *testing.T) {
	s := New(chaintest.NewProvider(), nil, false)

	_, err := s.Provider()
	require.NoError(t, err)

	_, err = s.Wallet()
	assert.True(t, errors.Is(err, types.ErrNotConnected))
}

func TestConnectValidatesParams(t *testing.T) {
	_, err := Connect(context.Background(), Params{}, nil)
	assert.True(t, errors.Is(err, types.ErrNotConnected))

	_, err = Connect(context.Background(), Params{RPCURL: "http://127.0.0.1:1", PrivateKey: "not-a-key"}, nil)
	assert.True(t, errors.Is(err, types.ErrNotConnected))
	assert.Contains(t, err.Error(), "invalid private key")
}
