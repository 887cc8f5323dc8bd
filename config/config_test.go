package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Testnet)
	assert.Equal(t, 3*time.Second, cfg.ReceiptPollInterval)
	assert.Equal(t, 60*time.Second, cfg.ReceiptTimeout)
	assert.Equal(t, time.Second, cfg.PriceDebounce)
	assert.Equal(t, "https://colosseum.brokenreality.com", cfg.LedgerURL)
	assert.Equal(t, assets.ReceiverMainnet, cfg.Receiver())

	assert.Error(t, cfg.RequireAPIKey())
	assert.Error(t, cfg.RequireChain(false))
	assert.Same(t, cfg, Get())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GLADIATOR_SHOP_ZEROEX_API_KEY", "test-key")
	t.Setenv("GLADIATOR_SHOP_RPC_URL", "http://localhost:8545")
	t.Setenv("GLADIATOR_SHOP_TESTNET", "true")
	t.Setenv("GLADIATOR_SHOP_RECEIPT_TIMEOUT", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Testnet)
	assert.Equal(t, 90*time.Second, cfg.ReceiptTimeout)
	assert.Equal(t, assets.ReceiverSepolia, cfg.Receiver())
	assert.NoError(t, cfg.RequireAPIKey())
	assert.NoError(t, cfg.RequireChain(false))
	assert.Error(t, cfg.RequireChain(true))
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GLADIATOR_SHOP_RECEIVER_TESTNET", "not-an-address")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{ReceiptPollInterval: 3 * time.Second, ReceiptTimeout: time.Second}
	assert.Error(t, cfg.Validate())

	cfg.ReceiptTimeout = time.Minute
	assert.NoError(t, cfg.Validate())
}
