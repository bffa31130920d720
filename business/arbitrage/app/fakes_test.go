package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

var (
	btcUSD = marketDomain.NewPair(currency.BTC, currency.USD)
	ltcBTC = marketDomain.NewPair(currency.LTC, currency.BTC)
	ltcUSD = marketDomain.NewPair(currency.LTC, currency.USD)
	ethBTC = marketDomain.NewPair(currency.ETH, currency.BTC)
	ethUSD = marketDomain.NewPair(currency.ETH, currency.USD)
	ltcETH = marketDomain.NewPair(currency.LTC, currency.ETH)
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

// levels builds a ladder from "price:amount" strings.
func levels(specs ...string) []marketDomain.Level {
	out := make([]marketDomain.Level, 0, len(specs))
	for _, s := range specs {
		price, amount, _ := strings.Cut(s, ":")
		out = append(out, marketDomain.Level{Price: d(price), Amount: d(amount)})
	}
	return out
}

func book(exchange string, pair marketDomain.Pair, bids, asks []marketDomain.Level) *marketDomain.Depth {
	return marketDomain.NewDepth(exchange, pair, bids, asks, time.Now())
}

// fakeAdapter is an in-memory exchange with a proportional fee.
type fakeAdapter struct {
	name string

	mu          sync.Mutex
	pairs       []marketDomain.Pair
	books       map[marketDomain.Pair]*marketDomain.Depth
	failing     map[marketDomain.Pair]bool
	feeRate     decimal.Decimal
	feeCurrency currency.Code // empty = payment currency
	balances    map[string][]marketDomain.Balance
	listErr     error
	block       chan struct{} // FetchDepth waits on it, ignoring ctx

	fetches atomic.Int32
	lists   atomic.Int32
}

var _ marketApp.ExchangeAdapter = (*fakeAdapter)(nil)

// triangleAdapter serves the BTC/USD, LTC/BTC, LTC/USD books where
// USD→BTC→LTC→USD gains about 4.4% at a 0.2% fee.
func triangleAdapter(name string) *fakeAdapter {
	a := &fakeAdapter{
		name:    name,
		pairs:   []marketDomain.Pair{btcUSD, ltcBTC, ltcUSD},
		books:   map[marketDomain.Pair]*marketDomain.Depth{},
		failing: map[marketDomain.Pair]bool{},
		feeRate: d("0.002"),
		balances: map[string][]marketDomain.Balance{
			"main": {{Currency: currency.USD, Amount: d("1000")}},
		},
	}
	a.books[btcUSD] = book(name, btcUSD, levels("99:1"), levels("100:1", "101:1"))
	a.books[ltcBTC] = book(name, ltcBTC, levels("0.0099:500"), levels("0.01:500"))
	a.books[ltcUSD] = book(name, ltcUSD, levels("1.05:200", "1.04:200"), levels("1.06:200"))
	return a
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) ListSupportedPairs(context.Context) ([]marketDomain.Pair, error) {
	a.lists.Add(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listErr != nil {
		return nil, a.listErr
	}
	return append([]marketDomain.Pair(nil), a.pairs...), nil
}

func (a *fakeAdapter) FetchDepth(ctx context.Context, pair marketDomain.Pair) (*marketDomain.Depth, error) {
	a.fetches.Add(1)
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failing[pair] {
		return nil, apperror.Unavailable("fetch "+pair.String(), errors.New("exchange down"))
	}
	b, ok := a.books[pair]
	if !ok {
		return nil, apperror.Unavailable("fetch "+pair.String(), errors.New("unknown pair"))
	}
	return b, nil
}

func (a *fakeAdapter) FeeForOrder(_ context.Context, _ marketDomain.Side, price decimal.Decimal, pair marketDomain.Pair, amount decimal.Decimal) (marketDomain.Fee, error) {
	fee := marketDomain.ProportionalFee(a.feeRate, price, pair, amount)
	if a.feeCurrency != "" {
		fee.Currency = a.feeCurrency
	}
	return fee, nil
}

func (a *fakeAdapter) AccountBalances(_ context.Context, account string) ([]marketDomain.Balance, error) {
	b, ok := a.balances[account]
	if !ok {
		return nil, apperror.New(apperror.CodeBalanceFetchFailed, apperror.WithContext(account))
	}
	return b, nil
}

func (a *fakeAdapter) setFailing(pair marketDomain.Pair, failing bool) {
	a.mu.Lock()
	a.failing[pair] = failing
	a.mu.Unlock()
}

func (a *fakeAdapter) setPairs(pairs ...marketDomain.Pair) {
	a.mu.Lock()
	a.pairs = pairs
	a.mu.Unlock()
}

// batchAdapter adds FetchDepths to fakeAdapter.
type batchAdapter struct {
	*fakeAdapter
	batches atomic.Int32
}

func (b *batchAdapter) FetchDepths(ctx context.Context, pairs []marketDomain.Pair) (map[marketDomain.Pair]*marketDomain.Depth, error) {
	b.batches.Add(1)
	out := make(map[marketDomain.Pair]*marketDomain.Depth, len(pairs))
	for _, p := range pairs {
		if depth, err := b.fakeAdapter.FetchDepth(ctx, p); err == nil {
			out[p] = depth
		}
	}
	return out, nil
}

// cacheWith fills a depth cache with the books of a.
func cacheWith(a *fakeAdapter) *marketApp.DepthCache {
	cache := marketApp.NewDepthCache()
	for _, b := range a.books {
		cache.Put(a.name, b)
	}
	return cache
}

// usdTriangle returns the USD→BTC→LTC→USD cycle on exchange.
func usdTriangle(exchange string) *domain.Cycle {
	c, err := domain.NewCycle(
		domain.NewHop(exchange, btcUSD, marketDomain.SideBuy),
		domain.NewHop(exchange, ltcBTC, marketDomain.SideBuy),
		domain.NewHop(exchange, ltcUSD, marketDomain.SideSell),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// recordingExecutor records submitted order chains.
type recordingExecutor struct {
	mu     sync.Mutex
	chains [][]domain.Order
	err    error
}

func (e *recordingExecutor) Submit(_ context.Context, orders []domain.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.chains = append(e.chains, orders)
	return nil
}

func (e *recordingExecutor) submitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.chains)
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
