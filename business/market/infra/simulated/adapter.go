// Package simulated implements an in-memory exchange with configured order books.
package simulated

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/market/app"
	"github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

var (
	_ app.ExchangeAdapter   = (*Adapter)(nil)
	_ app.BatchDepthFetcher = (*Adapter)(nil)
)

// Book seeds one simulated order book.
type Book struct {
	Pair   domain.Pair
	Bid    decimal.Decimal // best bid
	Ask    decimal.Decimal // best ask
	Amount decimal.Decimal // traded amount per level
	Levels int
	Step   decimal.Decimal // relative distance between levels
}

// Config holds the simulated exchange settings.
type Config struct {
	Name       string
	FeeRate    decimal.Decimal
	Books      []Book
	Volatility float64 // relative standard deviation of the per-fetch random walk, 0 = static
	Seed       uint64
	Balances   map[string]map[string]decimal.Decimal // account -> currency -> amount
}

type book struct {
	Book
	offline bool
}

// Adapter serves the configured books. Prices move by a seeded random walk on every fetch.
type Adapter struct {
	config Config

	mu    sync.Mutex
	books map[domain.Pair]*book
	order []domain.Pair
	rng   *rand.Rand
}

// NewAdapter creates a simulated exchange.
func NewAdapter(cfg Config) (*Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "simulated"
	}

	a := &Adapter{
		config: cfg,
		books:  make(map[domain.Pair]*book, len(cfg.Books)),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	for _, b := range cfg.Books {
		if !b.Bid.IsPositive() || !b.Ask.IsPositive() {
			return nil, fmt.Errorf("book %s: bid and ask must be positive", b.Pair)
		}
		if b.Bid.GreaterThanOrEqual(b.Ask) {
			return nil, fmt.Errorf("book %s: bid %s must be below ask %s", b.Pair, b.Bid, b.Ask)
		}
		if _, dup := a.books[b.Pair]; dup {
			return nil, fmt.Errorf("book %s configured twice", b.Pair)
		}
		if b.Levels <= 0 {
			b.Levels = 1
		}
		if !b.Amount.IsPositive() {
			b.Amount = decimal.NewFromInt(1)
		}
		a.books[b.Pair] = &book{Book: b}
		a.order = append(a.order, b.Pair)
	}
	sort.Slice(a.order, func(i, j int) bool { return a.order[i].String() < a.order[j].String() })

	return a, nil
}

// Name returns the exchange identifier.
func (a *Adapter) Name() string {
	return a.config.Name
}

// ListSupportedPairs returns the pairs of every online book.
func (a *Adapter) ListSupportedPairs(_ context.Context) ([]domain.Pair, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pairs := make([]domain.Pair, 0, len(a.order))
	for _, p := range a.order {
		if !a.books[p].offline {
			pairs = append(pairs, p)
		}
	}
	return pairs, nil
}

// FetchDepth returns the book of pair after one random walk step.
func (a *Adapter) FetchDepth(ctx context.Context, pair domain.Pair) (*domain.Depth, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Unavailable("fetch depth "+pair.String(), err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.depthLocked(pair)
}

// FetchDepths returns every requested book that is online.
func (a *Adapter) FetchDepths(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]*domain.Depth, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Unavailable("fetch depths", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[domain.Pair]*domain.Depth, len(pairs))
	for _, p := range pairs {
		if depth, err := a.depthLocked(p); err == nil {
			out[p] = depth
		}
	}
	return out, nil
}

func (a *Adapter) depthLocked(pair domain.Pair) (*domain.Depth, error) {
	b, ok := a.books[pair]
	if !ok || b.offline {
		return nil, apperror.Unavailable("fetch depth "+pair.String(), fmt.Errorf("no book for %s", pair))
	}

	a.stepLocked(b)

	bids := make([]domain.Level, 0, b.Levels)
	asks := make([]domain.Level, 0, b.Levels)
	down := decimal.NewFromInt(1).Sub(b.Step)
	up := decimal.NewFromInt(1).Add(b.Step)
	bid, ask := b.Bid, b.Ask
	for i := 0; i < b.Levels; i++ {
		bids = append(bids, domain.Level{Price: bid, Amount: b.Amount})
		asks = append(asks, domain.Level{Price: ask, Amount: b.Amount})
		bid = bid.Mul(down).Round(10)
		ask = ask.Mul(up).Round(10)
	}

	return domain.NewDepth(a.config.Name, pair, bids, asks, time.Now()), nil
}

// stepLocked moves both sides of b by the same random factor, keeping the spread.
func (a *Adapter) stepLocked(b *book) {
	if a.config.Volatility <= 0 {
		return
	}
	shift := a.rng.NormFloat64() * a.config.Volatility
	// keep prices positive on extreme draws
	if shift < -0.5 {
		shift = -0.5
	}
	factor := decimal.NewFromFloat(1 + shift)
	b.Bid = b.Bid.Mul(factor).Round(10)
	b.Ask = b.Ask.Mul(factor).Round(10)
}

// FeeForOrder charges the configured rate on the order value, in the payment currency.
func (a *Adapter) FeeForOrder(_ context.Context, _ domain.Side, price decimal.Decimal, pair domain.Pair, amount decimal.Decimal) (domain.Fee, error) {
	return domain.ProportionalFee(a.config.FeeRate, price, pair, amount), nil
}

// AccountBalances returns the configured balances of account.
func (a *Adapter) AccountBalances(_ context.Context, account string) ([]domain.Balance, error) {
	held, ok := a.config.Balances[account]
	if !ok {
		return nil, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithContext(fmt.Sprintf("unknown account %q on %s", account, a.config.Name)))
	}

	out := make([]domain.Balance, 0, len(held))
	for code, amount := range held {
		out = append(out, domain.Balance{Currency: currency.Parse(code), Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

// SetBook replaces the best prices of pair, adding the book if needed.
func (a *Adapter) SetBook(b Book) {
	if b.Levels <= 0 {
		b.Levels = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.books[b.Pair]; ok {
		existing.Book = b
		return
	}
	a.books[b.Pair] = &book{Book: b}
	a.order = append(a.order, b.Pair)
	sort.Slice(a.order, func(i, j int) bool { return a.order[i].String() < a.order[j].String() })
}

// SetOffline makes pair fail every fetch and disappear from the pair list.
func (a *Adapter) SetOffline(pair domain.Pair, offline bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.books[pair]; ok {
		b.offline = offline
	}
}
