package app

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// PollerConfig holds configuration for an exchange poller.
type PollerConfig struct {
	Interval            time.Duration
	Jitter              time.Duration
	FetchTimeout        time.Duration
	FetchConcurrency    int
	PairRefreshInterval time.Duration
	TopCycles           int
}

// profitableHandler is called for every cycle that became profitable in a tick.
type profitableHandler func(ctx context.Context, cycle *domain.Cycle, opp domain.Opportunity)

// tickHandler is called after every tick.
type tickHandler func(ctx context.Context, report domain.TickReport)

// Poller refreshes the depth cache of one exchange and analyzes its catalogue
// in a loop: fetching, analyzing, sleeping.
type Poller struct {
	exchange  string
	adapter   marketApp.ExchangeAdapter
	cache     *marketApp.DepthCache
	catalogue *Catalogue
	generator *Generator
	analyzer  *Analyzer
	config    PollerConfig
	logger    logger.LoggerInterface
	metrics   *engineMetrics

	onProfitable profitableHandler
	onTick       tickHandler

	state       atomic.Value // domain.PollerState
	lastTick    atomic.Int64 // unix nanos
	pairsListed time.Time
	profitable  map[string]struct{}
}

func newPoller(
	adapter marketApp.ExchangeAdapter,
	cache *marketApp.DepthCache,
	catalogue *Catalogue,
	generator *Generator,
	analyzer *Analyzer,
	cfg PollerConfig,
	log logger.LoggerInterface,
	metrics *engineMetrics,
) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 8
	}

	p := &Poller{
		exchange:   adapter.Name(),
		adapter:    adapter,
		cache:      cache,
		catalogue:  catalogue,
		generator:  generator,
		analyzer:   analyzer,
		config:     cfg,
		logger:     log,
		metrics:    metrics,
		profitable: make(map[string]struct{}),
	}
	p.state.Store(domain.PollerIdle)
	return p
}

// Exchange returns the polled exchange.
func (p *Poller) Exchange() string {
	return p.exchange
}

// State returns the current phase.
func (p *Poller) State() domain.PollerState {
	return p.state.Load().(domain.PollerState)
}

func (p *Poller) setState(s domain.PollerState) {
	p.state.Store(s)
}

// LastUpdate returns when the last tick completed.
func (p *Poller) LastUpdate() time.Time {
	n := p.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	defer p.setState(domain.PollerStopped)

	p.logger.Info(ctx, "poller started", "exchange", p.exchange, "interval", p.config.Interval)
	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			if apperror.IsRetryable(err) {
				p.logger.Warn(ctx, "poll tick failed", "exchange", p.exchange, "error", err)
			} else {
				p.logger.Error(ctx, "poll tick failed", "exchange", p.exchange, "error", err)
			}
		}
		if !p.sleep(ctx) {
			p.logger.Info(ctx, "poller stopped", "exchange", p.exchange)
			return
		}
	}
}

// RunOnce performs a single fetch and analysis.
func (p *Poller) RunOnce(ctx context.Context) (domain.TickReport, error) {
	p.setState(domain.PollerIdle)

	if err := p.refreshCatalogue(ctx); err != nil {
		return domain.TickReport{}, err
	}
	return p.tick(ctx)
}

// refreshCatalogue lists the exchange's pairs when due and regenerates the
// catalogue if the pair set changed. A failed listing keeps the old catalogue.
func (p *Poller) refreshCatalogue(ctx context.Context) error {
	due := !p.catalogue.Generated() ||
		(p.config.PairRefreshInterval > 0 && time.Since(p.pairsListed) >= p.config.PairRefreshInterval)
	if !due {
		return nil
	}

	pairs, err := p.adapter.ListSupportedPairs(ctx)
	if err != nil {
		if p.catalogue.Generated() {
			p.logger.Warn(ctx, "pair refresh failed, keeping catalogue", "exchange", p.exchange, "error", err)
			return nil
		}
		return apperror.Unavailable("list pairs of "+p.exchange, err)
	}
	p.pairsListed = time.Now()

	if p.catalogue.Generated() && p.catalogue.SamePairs(pairs) {
		return nil
	}

	cycles, err := p.generator.Generate(ctx, p.exchange, pairs)
	if err != nil {
		return err
	}
	p.catalogue.Replace(pairs, cycles)
	p.cache.Retain(p.exchange, pairs)
	p.profitable = make(map[string]struct{})

	p.logger.Info(ctx, "catalogue generated",
		"exchange", p.exchange,
		"pairs", len(pairs),
		"cycles", len(cycles))
	return nil
}

func (p *Poller) tick(ctx context.Context) (domain.TickReport, error) {
	started := time.Now()
	pairs := p.catalogue.Pairs()
	cycles := p.catalogue.Cycles()

	p.setState(domain.PollerFetching)
	fetchCtx, cancel := context.WithTimeout(ctx, p.config.FetchTimeout)
	missing := p.fetch(fetchCtx, pairs)
	cancel()
	if err := ctx.Err(); err != nil {
		return domain.TickReport{}, err
	}

	p.setState(domain.PollerAnalyzing)
	deactivateMissing(cycles, missing)

	stats, err := p.analyzer.Analyze(ctx, p.exchange, cycles, p.cache, p.adapter)
	if err != nil {
		return domain.TickReport{}, err
	}

	p.setState(domain.PollerSleeping)
	now := time.Now()
	p.logOpportunities(ctx, cycles, now)

	report := domain.TickReport{
		Exchange:   p.exchange,
		State:      domain.PollerSleeping,
		Duration:   now.Sub(started),
		Cycles:     stats.Cycles,
		Evaluated:  stats.Evaluated,
		Profitable: stats.Profitable,
		Missing:    missing,
		Top:        TopByIndicator(p.catalogue.Snapshots(), p.config.TopCycles),
		At:         now,
	}
	p.lastTick.Store(now.UnixNano())
	p.metrics.recordTick(ctx, p.exchange, stats, len(missing), report.Duration)

	p.logger.Debug(ctx, "tick completed",
		"exchange", p.exchange,
		"cycles", stats.Cycles,
		"evaluated", stats.Evaluated,
		"profitable", stats.Profitable,
		"missing", len(missing),
		"duration", report.Duration)

	if p.onTick != nil {
		p.onTick(ctx, report)
	}
	return report, nil
}

// deactivateMissing re-enables every cycle, then disables those trading a missing pair.
func deactivateMissing(cycles []*domain.Cycle, missing []marketDomain.Pair) {
	for _, c := range cycles {
		active := true
		for _, pair := range missing {
			if c.Uses(pair) {
				active = false
				break
			}
		}
		c.SetActive(active)
	}
}

// fetch refreshes the cached depth of pairs and returns the pairs that failed.
func (p *Poller) fetch(ctx context.Context, pairs []marketDomain.Pair) []marketDomain.Pair {
	if batch, ok := p.adapter.(marketApp.BatchDepthFetcher); ok {
		return p.fetchBatch(ctx, batch, pairs)
	}

	var (
		mu      sync.Mutex
		missing []marketDomain.Pair
		g       errgroup.Group
	)
	g.SetLimit(p.config.FetchConcurrency)

	for _, pair := range pairs {
		g.Go(func() error {
			depth, err := p.adapter.FetchDepth(ctx, pair)
			if err != nil || depth == nil {
				p.logger.Debug(ctx, "depth unavailable", "exchange", p.exchange, "pair", pair.String(), "error", err)
				mu.Lock()
				missing = append(missing, pair)
				mu.Unlock()
				return nil
			}
			p.cache.Put(p.exchange, depth)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}

func (p *Poller) fetchBatch(ctx context.Context, batch marketApp.BatchDepthFetcher, pairs []marketDomain.Pair) []marketDomain.Pair {
	depths, err := batch.FetchDepths(ctx, pairs)
	if err != nil {
		p.logger.Warn(ctx, "batch depth fetch failed", "exchange", p.exchange, "error", err)
		return append([]marketDomain.Pair(nil), sortedPairs(pairs)...)
	}

	fresh := make(map[marketDomain.Pair]*marketDomain.Depth, len(depths))
	var missing []marketDomain.Pair
	for _, pair := range pairs {
		if depth, ok := depths[pair]; ok && depth != nil {
			fresh[pair] = depth
			continue
		}
		missing = append(missing, pair)
	}
	p.cache.PutAll(p.exchange, fresh)

	sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}

// logOpportunities reports cycles that are profitable now but were not in the previous tick.
func (p *Poller) logOpportunities(ctx context.Context, cycles []*domain.Cycle, at time.Time) {
	current := make(map[string]struct{})
	for _, c := range cycles {
		if !c.Evaluation().Profitable() {
			continue
		}
		current[c.Key()] = struct{}{}
		if _, seen := p.profitable[c.Key()]; seen {
			continue
		}
		opp := domain.NewOpportunity(c.Snapshot(), at)
		p.logger.Info(ctx, "opportunity",
			"exchange", p.exchange,
			"cycle", opp.Path,
			"amount", opp.Amount.String(),
			"profit", opp.Profit.String(),
			"indicator", opp.IndicatorOutput.String())
		if p.onProfitable != nil {
			p.onProfitable(ctx, c, opp)
		}
	}
	p.profitable = current
}

// sleep waits the interval plus jitter. It returns false when ctx is done.
func (p *Poller) sleep(ctx context.Context) bool {
	d := p.config.Interval
	if p.config.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.config.Jitter)))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
