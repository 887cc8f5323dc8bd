package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

// QuoteResolver prices swaps. *client.ZeroExClient satisfies it.
type QuoteResolver interface {
	GetPrice(ctx context.Context, sell, buy types.Asset, amount string) (*types.Quote, error)
	GetBindingQuote(ctx context.Context, sell, buy types.Asset, amount string, prior *types.Quote, taker common.Address) (*types.BindingQuote, error)
}

// PriceUpdate is delivered to the price hook after a debounced refresh
type PriceUpdate struct {
	Quote *types.Quote
	Fee   *types.Fee
	Err   error
}

// Pricer tracks the current swap inputs and the last quote accepted for them.
// A refresh only lands if no newer inputs were set while it was in flight.
type Pricer struct {
	resolver QuoteResolver
	logger   *zap.Logger

	mu         sync.Mutex
	inputs     types.PriceInput
	hasInputs  bool
	generation uint64
	quote      *types.Quote
	fee        *types.Fee
	err        error
}

// NewPricer creates a new pricer instance
func NewPricer(resolver QuoteResolver, logger *zap.Logger) *Pricer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pricer{
		resolver: resolver,
		logger:   logger,
	}
}

// SetInputs replaces the swap inputs. Any refresh still in flight is superseded.
func (p *Pricer) SetInputs(in types.PriceInput) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	if !p.hasInputs || !p.inputs.Equal(in) {
		p.quote = nil
		p.fee = nil
		p.err = nil
	}
	p.inputs = in
	p.hasInputs = true
}

// Inputs returns the current swap inputs
func (p *Pricer) Inputs() (types.PriceInput, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputs, p.hasInputs
}

// Refresh prices the current inputs. It returns ErrStaleQuote when the inputs
// changed before the price arrived; the result is then dropped.
func (p *Pricer) Refresh(ctx context.Context) (*types.Quote, error) {
	p.mu.Lock()
	if !p.hasInputs {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to price", types.ErrInvalidInput)
	}
	in, generation := p.inputs, p.generation
	p.mu.Unlock()

	if p.resolver == nil {
		return nil, fmt.Errorf("%w: no quote resolver configured", types.ErrQuoteUnavailable)
	}

	quote, err := p.resolver.GetPrice(ctx, in.Sell, in.Buy, in.Amount)

	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		p.logger.Debug("discarding superseded price",
			zap.String("sell", in.Sell.Symbol),
			zap.String("buy", in.Buy.Symbol),
			zap.String("amount", in.Amount))
		return nil, fmt.Errorf("%w: inputs changed while pricing %s %s", types.ErrStaleQuote, in.Amount, in.Sell.Symbol)
	}

	if err != nil {
		p.quote = nil
		p.fee = nil
		p.err = err
		return nil, err
	}

	fee := ComputeFee(quote)
	p.quote = quote
	p.fee = &fee
	p.err = nil

	return quote, nil
}

// Current returns the last accepted quote, its fee and the last pricing error
func (p *Pricer) Current() (*types.Quote, *types.Fee, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quote, p.fee, p.err
}

// Accepted returns the accepted quote if it was resolved for the current inputs
func (p *Pricer) Accepted() *types.Quote {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasInputs || !p.quote.Matches(p.inputs) {
		return nil
	}
	return p.quote
}

// Bind turns an accepted quote into a binding quote for the taker
func (p *Pricer) Bind(ctx context.Context, quote *types.Quote, taker common.Address) (*types.BindingQuote, error) {
	if p.resolver == nil {
		return nil, fmt.Errorf("%w: no quote resolver configured", types.ErrQuoteUnavailable)
	}
	in := quote.Input
	return p.resolver.GetBindingQuote(ctx, in.Sell, in.Buy, in.Amount, quote, taker)
}

// Clear drops the inputs and quote and supersedes any refresh in flight
func (p *Pricer) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
}

// Settle clears the inputs only if they are still in, leaving newer inputs alone
func (p *Pricer) Settle(in types.PriceInput) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasInputs && p.inputs.Equal(in) {
		p.clear()
	}
}

func (p *Pricer) clear() {
	p.generation++
	p.inputs = types.PriceInput{}
	p.hasInputs = false
	p.quote = nil
	p.fee = nil
	p.err = nil
}
