package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// IntentKind selects how gas is determined for a transaction
type IntentKind string

const (
	// IntentNativeTransfer moves the native asset; gas is estimated and buffered.
	IntentNativeTransfer IntentKind = "native_transfer"
	// IntentContractCall calls a contract; gas is left to the provider's own estimate.
	IntentContractCall IntentKind = "contract_call"
)

// TransactionIntent is the payload to submit. It is built fresh per attempt.
type TransactionIntent struct {
	Kind     IntentKind
	From     common.Address
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64   // zero until the submitter fills it in
	GasPrice *big.Int // nil until the submitter fills it in
}

// TxStatus is the lifecycle state of a broadcast transaction
type TxStatus string

const (
	TxBroadcast TxStatus = "broadcast"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
	TxTimedOut  TxStatus = "timed-out"
)

// IsTerminal reports whether no further transitions are allowed
func (s TxStatus) IsTerminal() bool {
	return s == TxConfirmed || s == TxFailed || s == TxTimedOut
}

// RecordKind identifies what a transaction was sent for
type RecordKind string

const (
	RecordApproval RecordKind = "approval"
	RecordSwap     RecordKind = "swap"
	RecordPurchase RecordKind = "purchase"
)

// TransactionRecord tracks one broadcast transaction until it reaches a terminal state
type TransactionRecord struct {
	ID       string            `json:"id"`
	Kind     RecordKind        `json:"kind"`
	Hash     common.Hash       `json:"hash"`
	Status   TxStatus          `json:"status"`
	Intent   TransactionIntent `json:"-"`
	Error    string            `json:"error,omitempty"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`
	BlockNum uint64            `json:"block_number,omitempty"`
	GasUsed  uint64            `json:"gas_used,omitempty"`
}

// ShopItem is a purchasable cosmetic upgrade
type ShopItem struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Collection  string          `json:"collection"`
	CostToken   decimal.Decimal `json:"cost_usdc"`
	CostNative  decimal.Decimal `json:"cost_eth"`
}

// PurchaseReport is the payload sent to the backend ledger once a purchase is broadcast
type PurchaseReport struct {
	Wallet          string `json:"wallet"`
	ItemID          int64  `json:"itemID"`
	TransactionHash string `json:"transactionHash"`
	Testnet         bool   `json:"testnet"`
}
