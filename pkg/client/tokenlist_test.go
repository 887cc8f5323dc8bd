package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const tokenListBody = `{
	"name": "CoinGecko",
	"tokens": [
		{"chainId": 1, "address": "0x514910771af9ca656af840dff83e8264ecf986ca", "name": "Chainlink", "symbol": "LINK", "decimals": 18},
		{"chainId": 1, "address": "0x6b175474e89094c44da98b954eedeac495271d0f", "name": "Dai", "symbol": "DAI", "decimals": 18},
		{"chainId": 1, "address": "0x95ad61b0a150d79219dcf64e1e6cc01f0b64c4ce", "name": "Shiba Inu", "symbol": "SHIB", "decimals": 18},
		{"chainId": 1, "address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "name": "USD Coin", "symbol": "USDC", "decimals": 6},
		{"chainId": 1, "address": "not-an-address", "name": "Broken", "symbol": "USDT", "decimals": 6}
	]
}`

func TestGetTokensFiltersAndSorts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uniswap/all.json", r.URL.Path)
		fmt.Fprint(w, tokenListBody)
	}))
	defer srv.Close()

	c := NewTokenListClient(WithBaseURL(srv.URL + "/uniswap/all.json"))
	tokens, err := c.GetTokens(context.Background(), []string{"USDT", "USDC", "DAI", "LINK"})
	require.NoError(t, err)

	symbols := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		symbols = append(symbols, tok.Symbol)
	}
	assert.Equal(t, []string{"USDC", "DAI", "LINK"}, symbols)
	assert.Equal(t, int32(6), tokens[0].Decimals)
}

func TestGetTokensUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	c := NewTokenListClient(WithBaseURL(srv.URL))
	_, err := c.GetTokens(context.Background(), []string{"USDC"})
	assert.True(t, errors.Is(err, types.ErrTokenListUnavailable))

	srv.Close()
	_, err = c.GetTokens(context.Background(), []string{"USDC"})
	assert.True(t, errors.Is(err, types.ErrTokenListUnavailable))
}
