// Package orchestrator drives swaps and shop purchases from pricing through
// approval and submission to a final receipt.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/assets"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/session"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

const ledgerReportTimeout = 30 * time.Second

var errActionInFlight = fmt.Errorf("%w: another transaction is already in progress", types.ErrInvalidInput)

// LedgerReporter records purchases with the game backend. *client.LedgerClient satisfies it.
type LedgerReporter interface {
	ReportPurchase(ctx context.Context, report types.PurchaseReport) error
}

// Orchestrator runs one user action at a time against a session
type Orchestrator struct {
	session    *session.Session
	pricer     *Pricer
	ledger     LedgerReporter
	history    *History
	submitter  *chain.Submitter
	allowances *chain.AllowanceManager
	watcher    *chain.Watcher
	debouncer  *Debouncer
	logger     *zap.Logger

	receiver    common.Address
	debounce    time.Duration
	watcherOpts []chain.WatcherOption
	onState     func(Transition)
	onPrice     func(PriceUpdate)

	mu     sync.Mutex
	state  State
	action uint64 // bumped per action and on cancel; stale actions stop driving state
	busy   bool

	reports sync.WaitGroup
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithStateHook is called after every state change
func WithStateHook(fn func(Transition)) Option {
	return func(o *Orchestrator) { o.onState = fn }
}

// WithPriceHook receives the result of each debounced price refresh
func WithPriceHook(fn func(PriceUpdate)) Option {
	return func(o *Orchestrator) { o.onPrice = fn }
}

// WithReceiver overrides the shop receiver contract
func WithReceiver(addr common.Address) Option {
	return func(o *Orchestrator) { o.receiver = addr }
}

// WithDebounce sets how long input changes are coalesced before pricing
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) { o.debounce = d }
}

// WithWatcherOptions configures the receipt watcher
func WithWatcherOptions(opts ...chain.WatcherOption) Option {
	return func(o *Orchestrator) { o.watcherOpts = append(o.watcherOpts, opts...) }
}

// WithHistory shares a history between orchestrators
func WithHistory(h *History) Option {
	return func(o *Orchestrator) { o.history = h }
}

// New creates an orchestrator. ledger may be nil.
func New(sess *session.Session, quotes QuoteResolver, ledger LedgerReporter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		session:  sess,
		ledger:   ledger,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.history == nil {
		o.history = NewHistory()
	}
	if o.receiver == (common.Address{}) {
		o.receiver = assets.Receiver(sess.Testnet())
	}

	o.pricer = NewPricer(quotes, o.logger)
	o.debouncer = NewDebouncer(o.debounce, o.refreshDebounced)

	if provider, err := sess.Provider(); err == nil {
		watcherOpts := append([]chain.WatcherOption{chain.WithWatcherLogger(o.logger)}, o.watcherOpts...)
		o.watcher = chain.NewWatcher(provider, watcherOpts...)

		if signer, err := sess.Signer(); err == nil {
			o.submitter = chain.NewSubmitter(provider, signer, o.logger)
			o.allowances = chain.NewAllowanceManager(provider, o.submitter, o.watcher, o.logger)
		}
	}

	return o
}

// State returns the current state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// History returns the session's transaction records
func (o *Orchestrator) History() *History {
	return o.history
}

// Watcher returns the receipt watcher, nil without a provider
func (o *Orchestrator) Watcher() *chain.Watcher {
	return o.watcher
}

// SetInputs replaces the swap inputs without pricing them
func (o *Orchestrator) SetInputs(in types.PriceInput) {
	o.pricer.SetInputs(in)
}

// UpdateInputs replaces the swap inputs and schedules a debounced price refresh
func (o *Orchestrator) UpdateInputs(in types.PriceInput) {
	o.pricer.SetInputs(in)
	o.debouncer.Trigger()
}

// Inputs returns the current swap inputs
func (o *Orchestrator) Inputs() (types.PriceInput, bool) {
	return o.pricer.Inputs()
}

// Quote returns the last accepted quote and fee, and the last pricing error
func (o *Orchestrator) Quote() (*types.Quote, *types.Fee, error) {
	return o.pricer.Current()
}

// RefreshPrice prices the current inputs now. Pricing errors do not change the
// action state beyond returning to idle; a superseded result returns ErrStaleQuote.
func (o *Orchestrator) RefreshPrice(ctx context.Context) (*types.Quote, error) {
	o.mu.Lock()
	id, busy := o.action, o.busy
	o.mu.Unlock()

	if !busy {
		o.transition(id, StatePricing, nil, nil)
	}

	quote, err := o.pricer.Refresh(ctx)
	if errors.Is(err, types.ErrStaleQuote) {
		return nil, err
	}

	if !busy {
		o.transition(id, StateIdle, nil, nil)
	}
	return quote, err
}

func (o *Orchestrator) refreshDebounced() {
	quote, err := o.RefreshPrice(context.Background())
	if errors.Is(err, types.ErrStaleQuote) {
		return
	}
	if err != nil {
		o.logger.Debug("price refresh failed", zap.Error(err))
	}
	if o.onPrice != nil {
		_, fee, _ := o.pricer.Current()
		o.onPrice(PriceUpdate{Quote: quote, Fee: fee, Err: err})
	}
}

// Cancel returns to idle and clears the inputs. A broadcast transaction is not
// affected; its record still reaches a final status in the history.
func (o *Orchestrator) Cancel() {
	o.debouncer.Stop()
	o.pricer.Clear()

	o.mu.Lock()
	o.action++
	id := o.action
	o.mu.Unlock()

	o.transition(id, StateIdle, nil, nil)
}

// Close stops pending price refreshes and waits for ledger reports to finish
func (o *Orchestrator) Close() {
	o.debouncer.Stop()
	o.reports.Wait()
}

// Swap sells the current inputs through the aggregator. It re-prices when the
// accepted quote no longer matches the inputs, approves the aggregator's
// allowance target when needed, then submits the binding quote's transaction.
func (o *Orchestrator) Swap(ctx context.Context) (*types.TransactionRecord, error) {
	wallet, err := o.wallet()
	if err != nil {
		return nil, err
	}

	id, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.end()

	if _, ok := o.pricer.Inputs(); !ok {
		return nil, o.fail(id, nil, fmt.Errorf("%w: nothing to swap", types.ErrInvalidInput))
	}

	quote := o.pricer.Accepted()
	if quote == nil {
		o.transition(id, StatePricing, nil, nil)
		if quote, err = o.pricer.Refresh(ctx); err != nil {
			return nil, o.fail(id, nil, err)
		}
	}
	in := quote.Input

	if !in.Sell.IsNative() {
		if quote.AllowanceTarget == (common.Address{}) {
			return nil, o.fail(id, nil, fmt.Errorf("%w: quote has no allowance target", types.ErrQuoteUnavailable))
		}
		if err := o.ensureAllowance(ctx, id, wallet, quote.AllowanceTarget, in.Sell, quote.SellAmount); err != nil {
			return nil, o.fail(id, nil, err)
		}
		// the approval wait is long; the inputs may have moved on meanwhile
		if current := o.pricer.Accepted(); current == nil || !current.Matches(in) {
			return nil, o.fail(id, nil, fmt.Errorf("%w: inputs changed while approving %s %s", types.ErrStaleQuote, in.Amount, in.Sell.Symbol))
		}
	}

	o.transition(id, StateSubmitting, nil, nil)

	binding, err := o.pricer.Bind(ctx, quote, wallet)
	if err != nil {
		return nil, o.fail(id, nil, err)
	}

	value := binding.Value
	if value == nil {
		value = new(big.Int)
	}
	intent := types.TransactionIntent{
		Kind:  types.IntentContractCall,
		From:  wallet,
		To:    binding.To,
		Value: value,
		Data:  binding.Data,
	}

	o.logger.Info("submitting swap",
		zap.String("sell", in.Sell.Symbol),
		zap.String("buy", in.Buy.Symbol),
		zap.String("amount", in.Amount),
		zap.String("buy_amount", binding.BuyAmountFormatted()))

	return o.broadcast(ctx, id, types.RecordSwap, intent, nil, func() { o.pricer.Settle(in) })
}

// PurchaseRequest buys a shop item with the given asset
type PurchaseRequest struct {
	Item types.ShopItem
	Pay  types.Asset
}

// Cost is the item price in the payment asset
func (r PurchaseRequest) Cost() string {
	if r.Pay.IsNative() {
		return r.Item.CostNative.String()
	}
	return r.Item.CostToken.String()
}

// Purchase pays the shop receiver contract for an item. Native payments are a
// plain transfer; tokens are approved for the receiver and sent via deposit.
// The backend ledger is told about the purchase once it is broadcast.
func (o *Orchestrator) Purchase(ctx context.Context, req PurchaseRequest) (*types.TransactionRecord, error) {
	wallet, err := o.wallet()
	if err != nil {
		return nil, err
	}

	id, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.end()

	if req.Pay.IsZero() {
		return nil, o.fail(id, nil, fmt.Errorf("%w: payment asset is required", types.ErrInvalidInput))
	}

	amount, err := types.ToBaseUnits(req.Cost(), req.Pay.Decimals)
	if err != nil {
		return nil, o.fail(id, nil, err)
	}

	var intent types.TransactionIntent
	if req.Pay.IsNative() {
		intent = types.TransactionIntent{
			Kind:  types.IntentNativeTransfer,
			From:  wallet,
			To:    o.receiver,
			Value: amount,
		}
	} else {
		if err := o.ensureAllowance(ctx, id, wallet, o.receiver, req.Pay, amount); err != nil {
			return nil, o.fail(id, nil, err)
		}

		data, err := chain.PackDeposit(req.Pay.Address, amount)
		if err != nil {
			return nil, o.fail(id, nil, fmt.Errorf("%w: failed to pack deposit: %v", types.ErrSubmissionFailed, err))
		}
		intent = types.TransactionIntent{
			Kind:  types.IntentContractCall,
			From:  wallet,
			To:    o.receiver,
			Value: new(big.Int),
			Data:  data,
		}
	}

	o.transition(id, StateSubmitting, nil, nil)

	o.logger.Info("submitting purchase",
		zap.Int64("item_id", req.Item.ID),
		zap.String("pay", req.Pay.Symbol),
		zap.String("cost", req.Cost()))

	return o.broadcast(ctx, id, types.RecordPurchase, intent, func(hash common.Hash) {
		o.report(ctx, types.PurchaseReport{
			Wallet:          wallet.Hex(),
			ItemID:          req.Item.ID,
			TransactionHash: hash.Hex(),
			Testnet:         o.session.Testnet(),
		})
	}, o.pricer.Clear)
}

func (o *Orchestrator) wallet() (common.Address, error) {
	wallet, err := o.session.Wallet()
	if err != nil {
		return common.Address{}, err
	}
	if o.submitter == nil {
		return common.Address{}, fmt.Errorf("%w: no chain provider", types.ErrNotConnected)
	}
	return wallet, nil
}

// ensureAllowance approves spender for required when the live allowance is short,
// and waits for the approval to be mined
func (o *Orchestrator) ensureAllowance(ctx context.Context, id uint64, owner, spender common.Address, token types.Asset, required *big.Int) error {
	state, _, err := o.allowances.Check(ctx, owner, spender, token, required)
	if err != nil {
		return err
	}
	if state == chain.AllowanceSufficient {
		return nil
	}

	o.transition(id, StateApproving, nil, nil)

	approval, err := o.allowances.Approve(ctx, owner, spender, token, required)
	if err != nil {
		return err
	}

	record := o.history.Create(types.RecordApproval, approval.Hash, approval.Intent)
	receipt, err := o.allowances.AwaitApproval(ctx, approval)
	o.finishRecord(record.ID, receipt, err)

	return err
}

// broadcast submits intent, records it and waits for its receipt. onConfirmed
// clears whatever input state the action consumed.
func (o *Orchestrator) broadcast(ctx context.Context, id uint64, kind types.RecordKind, intent types.TransactionIntent, onBroadcast func(common.Hash), onConfirmed func()) (*types.TransactionRecord, error) {
	prepared, hash, err := o.submitter.Send(ctx, intent)
	if err != nil {
		return nil, o.fail(id, nil, err)
	}

	record := o.history.Create(kind, hash, prepared)
	o.transition(id, StatePending, &record, nil)

	if onBroadcast != nil {
		onBroadcast(hash)
	}

	receipt, err := o.watcher.Await(ctx, hash)
	final, ok := o.finishRecord(record.ID, receipt, err)
	if !ok {
		// the caller stopped waiting; the transaction may still be mined
		o.transition(id, StateIdle, &record, err)
		return &record, err
	}

	switch final.Status {
	case types.TxConfirmed:
		onConfirmed()
		o.transition(id, StateConfirmed, &final, nil)
		return &final, nil
	case types.TxTimedOut:
		o.transition(id, StateTimedOut, &final, err)
		return &final, err
	default:
		if err == nil {
			err = fmt.Errorf("%w: transaction %s reverted", types.ErrOnChainRevert, hash.Hex())
		}
		o.transition(id, StateFailed, &final, err)
		return &final, err
	}
}

// finishRecord moves a record to the status its receipt wait implies. It
// returns false when the wait was abandoned and the record stays broadcast.
func (o *Orchestrator) finishRecord(recordID string, receipt *ethtypes.Receipt, waitErr error) (types.TransactionRecord, bool) {
	var status types.TxStatus
	switch {
	case errors.Is(waitErr, types.ErrReceiptTimeout):
		status = types.TxTimedOut
	case errors.Is(waitErr, context.Canceled), errors.Is(waitErr, context.DeadlineExceeded):
		return types.TransactionRecord{}, false
	case receipt != nil && chain.Succeeded(receipt) && waitErr == nil:
		status = types.TxConfirmed
	default:
		status = types.TxFailed
	}

	cause := waitErr
	if status == types.TxFailed && cause == nil {
		cause = types.ErrOnChainRevert
	}

	record, err := o.history.Finish(recordID, status, receipt, cause)
	if err != nil {
		o.logger.Warn("failed to finish transaction record", zap.String("id", recordID), zap.Error(err))
	}
	return record, true
}

// report sends the purchase to the ledger in the background. The outcome is
// only logged; it never changes the action's result.
func (o *Orchestrator) report(ctx context.Context, report types.PurchaseReport) {
	if o.ledger == nil {
		return
	}

	o.reports.Add(1)
	go func() {
		defer o.reports.Done()

		reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerReportTimeout)
		defer cancel()

		if err := o.ledger.ReportPurchase(reportCtx, report); err != nil {
			o.logger.Warn("failed to report purchase",
				zap.Int64("item_id", report.ItemID),
				zap.String("tx_hash", report.TransactionHash),
				zap.Error(err))
			return
		}
		o.logger.Debug("purchase reported", zap.String("tx_hash", report.TransactionHash))
	}()
}

func (o *Orchestrator) begin() (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busy {
		return 0, errActionInFlight
	}
	o.busy = true
	o.action++
	return o.action, nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
}

func (o *Orchestrator) fail(id uint64, record *types.TransactionRecord, err error) error {
	o.transition(id, StateFailed, record, err)
	return err
}

// transition applies a state change for action id unless the action was cancelled
func (o *Orchestrator) transition(id uint64, to State, record *types.TransactionRecord, err error) {
	o.mu.Lock()
	if id != o.action {
		o.mu.Unlock()
		return
	}
	from := o.state
	o.state = to
	hook := o.onState
	o.mu.Unlock()

	fields := []zap.Field{zap.String("from", string(from)), zap.String("to", string(to))}
	if record != nil {
		fields = append(fields, zap.String("hash", record.Hash.Hex()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	o.logger.Debug("state changed", fields...)

	if hook != nil {
		hook(Transition{From: from, To: to, Record: record, Err: err})
	}
}
