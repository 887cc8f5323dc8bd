package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const (
	DefaultPollInterval   = 3 * time.Second
	DefaultReceiptTimeout = 60 * time.Second
)

// Clock abstracts time for the receipt loop
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReceiptReader fetches transaction receipts
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Watcher polls for transaction receipts until they appear or a deadline passes
type Watcher struct {
	reader   ReceiptReader
	clock    Clock
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	// one active watch per hash; concurrent callers share its result
	inflight singleflight.Group
}

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithPollInterval sets the time between receipt polls
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithReceiptTimeout sets the overall deadline
func WithReceiptTimeout(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithClock replaces the wall clock
func WithClock(c Clock) WatcherOption {
	return func(w *Watcher) { w.clock = c }
}

// WithWatcherLogger sets the logger
func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a receipt watcher with 3s polls and a 60s deadline by default
func NewWatcher(reader ReceiptReader, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		reader:   reader,
		clock:    realClock{},
		interval: DefaultPollInterval,
		timeout:  DefaultReceiptTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Await returns the receipt for hash as soon as one is observed, whatever its
// status. It fails with ErrReceiptTimeout when none appears before the deadline;
// the transaction may still be mined after that.
func (w *Watcher) Await(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the shared poll is bounded by its deadline, not by whichever caller started it
	ch := w.inflight.DoChan(hash.Hex(), func() (interface{}, error) {
		return w.poll(context.WithoutCancel(ctx), hash)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			w.logger.Debug("joined existing receipt watch", zap.String("hash", hash.Hex()))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ethtypes.Receipt), nil
	}
}

func (w *Watcher) poll(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	deadline := w.clock.Now().Add(w.timeout)

	for polls := 0; ; polls++ {
		remaining := deadline.Sub(w.clock.Now())
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s not mined after %d polls", types.ErrReceiptTimeout, hash.Hex(), polls)
		}

		wait := w.interval
		if remaining < wait {
			wait = remaining
		}
		if err := w.clock.Sleep(ctx, wait); err != nil {
			return nil, err
		}

		receipt, err := w.reader.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			w.logger.Debug("receipt not found yet", zap.String("hash", hash.Hex()), zap.Int("poll", polls+1))
		default:
			// transient RPC errors only end the wait through the deadline
			w.logger.Warn("receipt poll failed", zap.String("hash", hash.Hex()), zap.Error(err))
		}
	}
}

// Lookup does a single receipt query. A nil receipt with nil error means not mined yet.
func Lookup(ctx context.Context, reader ReceiptReader, hash common.Hash) (*ethtypes.Receipt, error) {
	receipt, err := reader.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	return receipt, nil
}

// Succeeded reports whether a receipt carries the success status
func Succeeded(receipt *ethtypes.Receipt) bool {
	return receipt != nil && receipt.Status == ethtypes.ReceiptStatusSuccessful
}
