package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/chain/chaintest"
	"github.com/danhendrickson/gladiator-shop-ethdenver2024/pkg/types"
)

func sendOne(t *testing.T, provider *chaintest.Provider) common.Hash {
	t.Helper()
	s := NewSubmitter(provider, newTestSigner(t), nil)
	hash, err := s.Submit(context.Background(), types.TransactionIntent{
		Kind:  types.IntentNativeTransfer,
		To:    receiver,
		Value: big.NewInt(1),
	})
	require.NoError(t, err)
	return hash
}

func TestAwaitReturnsOnTheTickTheReceiptAppears(t *testing.T) {
	for _, n := range []int{1, 2, 7, 20} {
		provider := chaintest.NewProvider()
		provider.MineAfter = n - 1
		hash := sendOne(t, provider)

		clock := chaintest.NewClock()
		start := clock.Now()
		w := NewWatcher(provider, WithClock(clock))

		receipt, err := w.Await(context.Background(), hash)
		require.NoError(t, err, "tick %d", n)
		assert.True(t, Succeeded(receipt))
		assert.Equal(t, n, provider.Polls(hash))
		assert.Equal(t, time.Duration(n)*DefaultPollInterval, clock.Now().Sub(start))
	}
}

func TestAwaitTimesOutAfterTwentiethPoll(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.MineAfter = chaintest.Never
	hash := sendOne(t, provider)

	clock := chaintest.NewClock()
	start := clock.Now()
	w := NewWatcher(provider, WithClock(clock), WithPollInterval(3*time.Second), WithReceiptTimeout(60*time.Second))

	_, err := w.Await(context.Background(), hash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrReceiptTimeout))
	assert.Equal(t, 20, provider.Polls(hash))
	assert.Equal(t, 60*time.Second, clock.Now().Sub(start))
}

func TestAwaitNeverPollsPastTheDeadline(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.MineAfter = chaintest.Never
	hash := sendOne(t, provider)

	clock := chaintest.NewClock()
	start := clock.Now()
	w := NewWatcher(provider, WithClock(clock), WithPollInterval(4*time.Second), WithReceiptTimeout(10*time.Second))

	_, err := w.Await(context.Background(), hash)
	assert.True(t, errors.Is(err, types.ErrReceiptTimeout))
	// polls at 4s, 8s and a final shortened wait at 10s
	assert.Equal(t, 3, provider.Polls(hash))
	assert.Equal(t, 10*time.Second, clock.Now().Sub(start))
}

func TestAwaitSwallowsTransientErrors(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.MineAfter = 3
	provider.PollErr = errors.New("connection reset by peer")
	hash := sendOne(t, provider)

	w := NewWatcher(provider, WithClock(chaintest.NewClock()))
	receipt, err := w.Await(context.Background(), hash)
	require.NoError(t, err)
	assert.NotNil(t, receipt)
	assert.Equal(t, 4, provider.Polls(hash))
}

func TestAwaitReturnsFailedReceipts(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.RevertDeposit()
	s := NewSubmitter(provider, newTestSigner(t), nil)
	data, err := PackDeposit(common.Address{1}, big.NewInt(1))
	require.NoError(t, err)
	hash, err := s.Submit(context.Background(), types.TransactionIntent{Kind: types.IntentContractCall, To: receiver, Data: data})
	require.NoError(t, err)

	receipt, err := NewWatcher(provider, WithClock(chaintest.NewClock())).Await(context.Background(), hash)
	require.NoError(t, err)
	assert.False(t, Succeeded(receipt))
}

func TestAwaitHonorsContext(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.MineAfter = chaintest.Never
	hash := sendOne(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWatcher(provider, WithClock(chaintest.NewClock())).Await(ctx, hash)
	assert.True(t, errors.Is(err, context.Canceled))
}

// gatedReader holds every receipt query until release is closed or the
// query's context ends
type gatedReader struct {
	release chan struct{}
	entered chan struct{}
}

func (r *gatedReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
		return &ethtypes.Receipt{TxHash: hash, Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestAwaitSharedWatchOutlivesCancelledCaller(t *testing.T) {
	reader := &gatedReader{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	w := NewWatcher(reader, WithClock(chaintest.NewClock()))
	hash := common.HexToHash("0x01")

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := w.Await(firstCtx, hash)
		firstErr <- err
	}()
	<-reader.entered

	type result struct {
		receipt *ethtypes.Receipt
		err     error
	}
	second := make(chan result, 1)
	go func() {
		receipt, err := w.Await(context.Background(), hash)
		second <- result{receipt, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.True(t, errors.Is(<-firstErr, context.Canceled))

	close(reader.release)
	res := <-second
	require.NoError(t, res.err)
	assert.True(t, Succeeded(res.receipt))
}

func TestAwaitIndependentHashes(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.MineAfter = 1
	first := sendOne(t, provider)
	second := sendOne(t, provider)

	w := NewWatcher(provider, WithPollInterval(time.Millisecond))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, h := range []common.Hash{first, second} {
		wg.Add(1)
		go func(i int, h common.Hash) {
			defer wg.Done()
			_, errs[i] = w.Await(context.Background(), h)
		}(i, h)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 2, provider.Polls(first))
	assert.Equal(t, 2, provider.Polls(second))
}

func TestLookup(t *testing.T) {
	provider := chaintest.NewProvider()
	provider.MineAfter = 1
	hash := sendOne(t, provider)

	receipt, err := Lookup(context.Background(), provider, hash)
	require.NoError(t, err)
	assert.Nil(t, receipt)

	receipt, err = Lookup(context.Background(), provider, hash)
	require.NoError(t, err)
	assert.True(t, Succeeded(receipt))
}
