package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

func TestReportPurchase(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/purchase-shop-item", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewLedgerClient(WithBaseURL(srv.URL))
	err := c.ReportPurchase(context.Background(), types.PurchaseReport{
		Wallet:          "0xabc",
		ItemID:          7,
		TransactionHash: "0xdead",
		Testnet:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, "0xabc", got["wallet"])
	assert.Equal(t, float64(7), got["itemID"])
	assert.Equal(t, "0xdead", got["transactionHash"])
	assert.Equal(t, true, got["testnet"])
}

func TestReportPurchaseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"db down"}`))
	}))
	defer srv.Close()

	c := NewLedgerClient(WithBaseURL(srv.URL))
	err := c.ReportPurchase(context.Background(), types.PurchaseReport{ItemID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
