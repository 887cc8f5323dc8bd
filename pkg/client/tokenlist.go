package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const DefaultTokenListURL = "https://tokens.coingecko.com/uniswap/all.json"

// TokenListClient fetches the public Uniswap token list
type TokenListClient struct {
	httpClient *http.Client
	url        string
	logger     *zap.Logger
}

type tokenList struct {
	Name   string      `json:"name"`
	Tokens []listToken `json:"tokens"`
}

type listToken struct {
	ChainID  int64  `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

// NewTokenListClient creates a token list client
func NewTokenListClient(opts ...Option) *TokenListClient {
	o := buildOptions(DefaultTokenListURL, opts)
	return &TokenListClient{
		httpClient: o.httpClient,
		url:        strings.TrimSuffix(o.baseURL, "/"),
		logger:     o.logger,
	}
}

// GetTokens returns the tokens whose symbol is in allow, in allow-list order
func (c *TokenListClient) GetTokens(ctx context.Context, allow []string) ([]types.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTokenListUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTokenListUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API returned status code %d", types.ErrTokenListUnavailable, resp.StatusCode)
	}

	var list tokenList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token list: %v", types.ErrTokenListUnavailable, err)
	}

	rank := make(map[string]int, len(allow))
	for i, symbol := range allow {
		rank[symbol] = i
	}

	tokens := make([]types.Asset, 0, len(allow))
	for _, t := range list.Tokens {
		if _, ok := rank[t.Symbol]; !ok {
			continue
		}
		if !common.IsHexAddress(t.Address) {
			c.logger.Warn("skipping token with malformed address", zap.String("symbol", t.Symbol), zap.String("address", t.Address))
			continue
		}
		tokens = append(tokens, types.Asset{
			Address:  common.HexToAddress(t.Address),
			ChainID:  t.ChainID,
			Decimals: t.Decimals,
			Symbol:   t.Symbol,
			Name:     t.Name,
			LogoURI:  t.LogoURI,
		})
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		return rank[tokens[i].Symbol] < rank[tokens[j].Symbol]
	})

	return tokens, nil
}
