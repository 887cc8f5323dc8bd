package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var (
	testUSDC = types.Asset{
		Address:  common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
		ChainID:  1,
		Decimals: 6,
		Symbol:   "USDC",
	}
	testETH = types.Asset{
		Address:  types.NativeAddress,
		ChainID:  1,
		Decimals: 18,
		Symbol:   "ETH",
	}
	testTaker = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

const priceBody = `{
	"price": "0.000312",
	"gasPrice": "20000000000",
	"estimatedGas": "150000",
	"buyAmount": "31200000000000000",
	"sellAmount": "100000000",
	"allowanceTarget": "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
	"sellTokenToEthRate": "3205.12",
	"buyTokenToEthRate": "1"
}`

const quoteBody = `{
	"price": "0.000311",
	"to": "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
	"data": "0xd9627aa4",
	"value": "0",
	"gas": "160000",
	"gasPrice": "21000000000",
	"buyAmount": "31100000000000000",
	"sellAmount": "100000000",
	"allowanceTarget": "0xdef1c0ded9bec7f1a1670819833240f027b25eff"
}`

func newZeroExServer(t *testing.T, handler http.HandlerFunc) *ZeroExClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewZeroExClient("test-key", false, WithBaseURL(srv.URL))
}

func TestGetPriceConvertsAmountAndParses(t *testing.T) {
	c := newZeroExServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/price", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("0x-api-key"))
		assert.Equal(t, "100000000", r.URL.Query().Get("sellAmount"))
		assert.Equal(t, testUSDC.Address.Hex(), r.URL.Query().Get("sellToken"))
		assert.Equal(t, testETH.Address.Hex(), r.URL.Query().Get("buyToken"))
		fmt.Fprint(w, priceBody)
	})

	q, err := c.GetPrice(context.Background(), testUSDC, testETH, "100")
	require.NoError(t, err)

	assert.Equal(t, "100000000", q.SellAmount.String())
	assert.Equal(t, "31200000000000000", q.BuyAmount.String())
	assert.Equal(t, uint64(150000), q.EstimatedGas)
	assert.Equal(t, "20000000000", q.GasPrice.String())
	assert.Equal(t, common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff"), q.AllowanceTarget)
	assert.Equal(t, "3205.12", q.SellTokenToNativeRate.String())
	assert.True(t, q.Matches(types.PriceInput{Sell: testUSDC, Buy: testETH, Amount: "100"}))
	assert.Equal(t, "0.0312", q.BuyAmountFormatted())
}

func TestGetPriceUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusBadRequest, `{"code":100,"reason":"Validation Failed"}`},
		{"server error", http.StatusInternalServerError, ``},
		{"malformed json", http.StatusOK, `{"buyAmount":`},
		{"malformed amount", http.StatusOK, `{"buyAmount":"lots","sellAmount":"1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newZeroExServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := c.GetPrice(context.Background(), testUSDC, testETH, "100")
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrQuoteUnavailable), err.Error())
		})
	}
}

func TestGetPriceInvalidInput(t *testing.T) {
	calls := 0
	c := newZeroExServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	_, err := c.GetPrice(context.Background(), testUSDC, testETH, "0")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = c.GetPrice(context.Background(), testUSDC, testETH, "-3")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = c.GetPrice(context.Background(), types.Asset{}, testETH, "1")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	assert.Zero(t, calls)
}

func TestGetBindingQuote(t *testing.T) {
	c := newZeroExServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swap/v1/price":
			fmt.Fprint(w, priceBody)
		case "/swap/v1/quote":
			assert.Equal(t, testTaker.Hex(), r.URL.Query().Get("takerAddress"))
			assert.Equal(t, "100000000", r.URL.Query().Get("sellAmount"))
			fmt.Fprint(w, quoteBody)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	prior, err := c.GetPrice(ctx, testUSDC, testETH, "100")
	require.NoError(t, err)

	bq, err := c.GetBindingQuote(ctx, testUSDC, testETH, "100", prior, testTaker)
	require.NoError(t, err)

	assert.Equal(t, prior.SellAmount, bq.SellAmount)
	assert.Equal(t, []byte{0xd9, 0x62, 0x7a, 0xa4}, bq.Data)
	assert.Equal(t, uint64(160000), bq.Gas)
	assert.Equal(t, testTaker, bq.Taker)
	assert.Equal(t, "0", bq.Value.String())

	// same order of magnitude as the indicative price
	ratio := new(big.Float).Quo(new(big.Float).SetInt(bq.BuyAmount), new(big.Float).SetInt(prior.BuyAmount))
	f, _ := ratio.Float64()
	assert.InDelta(t, 1.0, f, 0.9)
}

func TestGetBindingQuoteRequiresTaker(t *testing.T) {
	c := newZeroExServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.GetBindingQuote(context.Background(), testUSDC, testETH, "100", nil, common.Address{})
	assert.True(t, errors.Is(err, types.ErrNotConnected))
}

func TestGetBindingQuoteRejectsStalePrior(t *testing.T) {
	c := newZeroExServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, priceBody)
	})
	ctx := context.Background()

	prior, err := c.GetPrice(ctx, testUSDC, testETH, "100")
	require.NoError(t, err)

	_, err = c.GetBindingQuote(ctx, testUSDC, testETH, "200", prior, testTaker)
	assert.True(t, errors.Is(err, types.ErrStaleQuote))
}

func TestTestnetSelectsHost(t *testing.T) {
	assert.Equal(t, ZeroExSepoliaURL, NewZeroExClient("k", true).baseURL)
	assert.Equal(t, ZeroExMainnetURL, NewZeroExClient("k", false).baseURL)
}
