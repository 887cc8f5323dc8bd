package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

// Signer is the wallet: it owns an address and signs transactions for it
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
}

// KeySigner signs with a local private key
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner wraps an existing key
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// ParseKeySigner parses a hex private key, with or without 0x prefix
func ParseKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewKeySigner(key), nil
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTx(_ context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// ConfirmFunc asks the user whether to sign tx
type ConfirmFunc func(ctx context.Context, tx *ethtypes.Transaction) bool

// PromptSigner asks for confirmation before every signature
type PromptSigner struct {
	next    Signer
	confirm ConfirmFunc
}

// NewPromptSigner wraps next with a signing prompt
func NewPromptSigner(next Signer, confirm ConfirmFunc) *PromptSigner {
	return &PromptSigner{next: next, confirm: confirm}
}

func (s *PromptSigner) Address() common.Address {
	return s.next.Address()
}

func (s *PromptSigner) SignTx(ctx context.Context, tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	if !s.confirm(ctx, tx) {
		return nil, types.ErrUserRejected
	}
	return s.next.SignTx(ctx, tx, chainID)
}
