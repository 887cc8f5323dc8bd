package orchestrator

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

var (
	ErrRecordNotFound = errors.New("transaction record not found")
	ErrRecordFinal    = errors.New("transaction record is final")
)

// History keeps the transaction records of a session in memory.
// Records are returned as copies; terminal records never change.
type History struct {
	mu      sync.RWMutex
	records map[string]*types.TransactionRecord
	order   []string
	now     func() time.Time
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{
		records: make(map[string]*types.TransactionRecord),
		now:     time.Now,
	}
}

// Create adds a broadcast record for hash
func (h *History) Create(kind types.RecordKind, hash common.Hash, intent types.TransactionIntent) types.TransactionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	record := &types.TransactionRecord{
		ID:      uuid.New().String(),
		Kind:    kind,
		Hash:    hash,
		Status:  types.TxBroadcast,
		Intent:  intent,
		Created: now,
		Updated: now,
	}

	h.records[record.ID] = record
	h.order = append(h.order, record.ID)

	return *record
}

// Finish moves a broadcast record to a terminal status
func (h *History) Finish(id string, status types.TxStatus, receipt *ethtypes.Receipt, cause error) (types.TransactionRecord, error) {
	if !status.IsTerminal() {
		return types.TransactionRecord{}, fmt.Errorf("%w: '%s' is not a terminal status", types.ErrInvalidInput, status)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	record, exists := h.records[id]
	if !exists {
		return types.TransactionRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if record.Status.IsTerminal() {
		return *record, fmt.Errorf("%w: %s is %s", ErrRecordFinal, id, record.Status)
	}

	record.Status = status
	record.Updated = h.now()
	if receipt != nil {
		if receipt.BlockNumber != nil {
			record.BlockNum = receipt.BlockNumber.Uint64()
		}
		record.GasUsed = receipt.GasUsed
	}
	if cause != nil {
		record.Error = cause.Error()
	}

	return *record, nil
}

// Get returns a record by id
func (h *History) Get(id string) (types.TransactionRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	record, exists := h.records[id]
	if !exists {
		return types.TransactionRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return *record, nil
}

// ByHash returns the record for a transaction hash
func (h *History) ByHash(hash common.Hash) (types.TransactionRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range h.order {
		if h.records[id].Hash == hash {
			return *h.records[id], nil
		}
	}
	return types.TransactionRecord{}, fmt.Errorf("%w: %s", ErrRecordNotFound, hash.Hex())
}

// List returns all records in broadcast order
func (h *History) List() []types.TransactionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := make([]types.TransactionRecord, 0, len(h.order))
	for _, id := range h.order {
		records = append(records, *h.records[id])
	}
	return records
}

// ListByStatus returns records with the given status
func (h *History) ListByStatus(status types.TxStatus) []types.TransactionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := make([]types.TransactionRecord, 0)
	for _, id := range h.order {
		if h.records[id].Status == status {
			records = append(records, *h.records[id])
		}
	}
	return records
}

// Count returns the number of records
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}
