package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const DefaultLedgerURL = "https://colosseum.brokenreality.com"

// LedgerClient reports broadcast purchases to the game backend
type LedgerClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewLedgerClient creates a backend ledger client
func NewLedgerClient(opts ...Option) *LedgerClient {
	o := buildOptions(DefaultLedgerURL, opts)
	return &LedgerClient{
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
		logger:     o.logger,
	}
}

// ReportPurchase records a purchase transaction hash against the item.
// It records an attempt; the backend reconciles against the chain.
func (c *LedgerClient) ReportPurchase(ctx context.Context, report types.PurchaseReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"purchase-shop-item", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build purchase report: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to report purchase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ledger %s", apiErrorMessage(resp.StatusCode, body))
	}

	c.logger.Debug("purchase reported",
		zap.Int64("item_id", report.ItemID),
		zap.String("tx_hash", report.TransactionHash))
	return nil
}
