package assets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

func TestFind(t *testing.T) {
	link, err := Find(TestnetTokens(), "link")
	require.NoError(t, err)
	assert.Equal(t, int32(18), link.Decimals)
	assert.False(t, link.IsNative())

	eth, err := Find(TestnetTokens(), "ETH")
	require.NoError(t, err)
	assert.True(t, eth.IsNative())

	_, err = Find(TestnetTokens(), "DOGE")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestNetworkSelection(t *testing.T) {
	assert.Equal(t, ReceiverSepolia, Receiver(true))
	assert.Equal(t, ReceiverMainnet, Receiver(false))
	assert.Equal(t, "LINK", PreferredToken(true))
	assert.Equal(t, "USDC", PreferredToken(false))
	assert.True(t, ReferenceStable("usdc"))
	assert.False(t, ReferenceStable("LINK"))
}
