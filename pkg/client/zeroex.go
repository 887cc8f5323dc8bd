package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const (
	ZeroExMainnetURL = "https://api.0x.org/"
	ZeroExSepoliaURL = "https://sepolia.api.0x.org/"

	apiKeyHeader = "0x-api-key"
)

// ZeroExClient resolves prices and binding quotes from the 0x swap API
type ZeroExClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an HTTP collaborator
type Option func(*options)

type options struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL overrides the service host
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(defaultURL string, opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !strings.HasSuffix(o.baseURL, "/") {
		o.baseURL += "/"
	}
	return o
}

// NewZeroExClient creates a new 0x API client. The testnet flag selects the host.
func NewZeroExClient(apiKey string, testnet bool, opts ...Option) *ZeroExClient {
	host := ZeroExMainnetURL
	if testnet {
		host = ZeroExSepoliaURL
	}
	o := buildOptions(host, opts)

	return &ZeroExClient{
		httpClient: o.httpClient,
		apiKey:     apiKey,
		baseURL:    o.baseURL,
		logger:     o.logger,
		now:        time.Now,
	}
}

type priceResponse struct {
	Price              string `json:"price"`
	To                 string `json:"to"`
	Data               string `json:"data"`
	Value              string `json:"value"`
	Gas                string `json:"gas"`
	EstimatedGas       string `json:"estimatedGas"`
	GasPrice           string `json:"gasPrice"`
	BuyAmount          string `json:"buyAmount"`
	SellAmount         string `json:"sellAmount"`
	AllowanceTarget    string `json:"allowanceTarget"`
	SellTokenToEthRate string `json:"sellTokenToEthRate"`
	BuyTokenToEthRate  string `json:"buyTokenToEthRate"`
}

// GetPrice fetches an indicative price for selling amount of sell for buy
func (c *ZeroExClient) GetPrice(ctx context.Context, sell, buy types.Asset, amount string) (*types.Quote, error) {
	input := types.PriceInput{Sell: sell, Buy: buy, Amount: amount}
	params, err := swapParams(input)
	if err != nil {
		return nil, err
	}

	var resp priceResponse
	if err := c.get(ctx, "swap/v1/price", params, &resp); err != nil {
		return nil, err
	}

	return c.toQuote(input, &resp)
}

// GetBindingQuote fetches a firm quote for the taker. The sell amount is derived
// exactly as GetPrice derives it; prior, when given, must match the inputs.
func (c *ZeroExClient) GetBindingQuote(ctx context.Context, sell, buy types.Asset, amount string, prior *types.Quote, taker common.Address) (*types.BindingQuote, error) {
	if taker == (common.Address{}) {
		return nil, types.ErrNotConnected
	}

	input := types.PriceInput{Sell: sell, Buy: buy, Amount: amount}
	if prior != nil && !prior.Matches(input) {
		return nil, fmt.Errorf("%w: prior quote was resolved for different inputs", types.ErrStaleQuote)
	}

	params, err := swapParams(input)
	if err != nil {
		return nil, err
	}
	params.Set("takerAddress", taker.Hex())

	var resp priceResponse
	if err := c.get(ctx, "swap/v1/quote", params, &resp); err != nil {
		return nil, err
	}

	quote, err := c.toQuote(input, &resp)
	if err != nil {
		return nil, err
	}
	if quote.AllowanceTarget == (common.Address{}) && prior != nil {
		quote.AllowanceTarget = prior.AllowanceTarget
	}

	if !common.IsHexAddress(resp.To) {
		return nil, fmt.Errorf("%w: malformed quote target %q", types.ErrQuoteUnavailable, resp.To)
	}
	data, err := hexutil.Decode(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed call data: %v", types.ErrQuoteUnavailable, err)
	}
	value, err := parseBigOptional(resp.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed value: %v", types.ErrQuoteUnavailable, err)
	}
	gas, err := parseUintOptional(resp.Gas)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed gas: %v", types.ErrQuoteUnavailable, err)
	}

	return &types.BindingQuote{
		Quote: *quote,
		Taker: taker,
		To:    common.HexToAddress(resp.To),
		Data:  data,
		Value: value,
		Gas:   gas,
	}, nil
}

func swapParams(input types.PriceInput) (url.Values, error) {
	if input.Sell.IsZero() || input.Buy.IsZero() {
		return nil, fmt.Errorf("%w: sell and buy tokens are required", types.ErrInvalidInput)
	}

	sellAmount, err := types.ToBaseUnits(input.Amount, input.Sell.Decimals)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("sellToken", input.Sell.Address.Hex())
	params.Set("buyToken", input.Buy.Address.Hex())
	params.Set("sellAmount", sellAmount.String())
	return params, nil
}

func (c *ZeroExClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrQuoteUnavailable, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("0x request", zap.String("path", path), zap.String("query", params.Encode()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", types.ErrQuoteUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", types.ErrQuoteUnavailable, apiErrorMessage(resp.StatusCode, body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", types.ErrQuoteUnavailable, err)
	}
	return nil
}

// apiErrorMessage extracts the most useful message from an error body
func apiErrorMessage(status int, body []byte) string {
	var errorResp map[string]interface{}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		for _, key := range []string{"reason", "message"} {
			if msg, ok := errorResp[key].(string); ok && msg != "" {
				return fmt.Sprintf("API error (status %d): %s", status, msg)
			}
		}
	}
	if len(body) > 0 {
		return fmt.Sprintf("API error (status %d): %s", status, strings.TrimSpace(string(body)))
	}
	return fmt.Sprintf("API returned status code %d", status)
}

func (c *ZeroExClient) toQuote(input types.PriceInput, resp *priceResponse) (*types.Quote, error) {
	buyAmount, ok := new(big.Int).SetString(resp.BuyAmount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: malformed buyAmount %q", types.ErrQuoteUnavailable, resp.BuyAmount)
	}
	sellAmount, ok := new(big.Int).SetString(resp.SellAmount, 10)
	if !ok {
		return nil, fmt.Errorf("%w: malformed sellAmount %q", types.ErrQuoteUnavailable, resp.SellAmount)
	}
	gasPrice, err := parseBigOptional(resp.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed gasPrice: %v", types.ErrQuoteUnavailable, err)
	}

	estimated := resp.EstimatedGas
	if estimated == "" {
		estimated = resp.Gas
	}
	estimatedGas, err := parseUintOptional(estimated)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed estimatedGas: %v", types.ErrQuoteUnavailable, err)
	}

	quote := &types.Quote{
		Input:                 input,
		SellAmount:            sellAmount,
		BuyAmount:             buyAmount,
		Price:                 parseDecimalOptional(resp.Price),
		GasPrice:              gasPrice,
		EstimatedGas:          estimatedGas,
		SellTokenToNativeRate: parseDecimalOptional(resp.SellTokenToEthRate),
		BuyTokenToNativeRate:  parseDecimalOptional(resp.BuyTokenToEthRate),
		ResolvedAt:            c.now(),
	}
	if common.IsHexAddress(resp.AllowanceTarget) {
		quote.AllowanceTarget = common.HexToAddress(resp.AllowanceTarget)
	}

	return quote, nil
}

func parseBigOptional(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

func parseUintOptional(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func parseDecimalOptional(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
