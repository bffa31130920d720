package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
)

func testPoller(a marketApp.ExchangeAdapter, cfg PollerConfig) (*Poller, *marketApp.DepthCache) {
	cache := marketApp.NewDepthCache()
	p := newPoller(a, cache, NewCatalogue(a.Name()),
		NewGenerator(GeneratorConfig{MaxExtensions: 4, Workers: 2}, testLogger()),
		NewAnalyzer(AnalyzerConfig{Workers: 2}, testLogger()),
		cfg, testLogger(), nil)
	return p, cache
}

func TestPoller_RunOnce(t *testing.T) {
	a := triangleAdapter("sim")
	p, cache := testPoller(a, PollerConfig{TopCycles: 3})

	var (
		mu   sync.Mutex
		opps []domain.Opportunity
	)
	p.onProfitable = func(_ context.Context, _ *domain.Cycle, opp domain.Opportunity) {
		mu.Lock()
		opps = append(opps, opp)
		mu.Unlock()
	}

	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if report.Cycles != 6 || report.Evaluated != 6 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Profitable == 0 {
		t.Error("expected profitable cycles")
	}
	if len(report.Missing) != 0 {
		t.Errorf("unexpected missing pairs %v", report.Missing)
	}
	if len(report.Top) == 0 || len(report.Top) > 3 {
		t.Errorf("Top has %d entries", len(report.Top))
	}
	for i := 1; i < len(report.Top); i++ {
		if report.Top[i].IndicatorOutput.GreaterThan(report.Top[i-1].IndicatorOutput) {
			t.Error("Top is not sorted by indicator")
		}
	}
	if _, ok := cache.Depth("sim", btcUSD); !ok {
		t.Error("depth cache was not filled")
	}
	if p.LastUpdate().IsZero() {
		t.Error("LastUpdate not set")
	}
	if p.State() != domain.PollerSleeping {
		t.Errorf("state = %s, want sleeping", p.State())
	}

	first := len(opps)
	if first != report.Profitable {
		t.Errorf("fired %d opportunities for %d profitable cycles", first, report.Profitable)
	}

	// still profitable, nothing new to report
	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(opps) != first {
		t.Errorf("opportunities re-fired: %d, want %d", len(opps), first)
	}
	if a.lists.Load() != 1 {
		t.Errorf("pairs listed %d times, want 1", a.lists.Load())
	}
}

func TestPoller_MissingPair(t *testing.T) {
	a := triangleAdapter("sim")
	p, _ := testPoller(a, PollerConfig{})

	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	a.setFailing(ltcBTC, true)
	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Missing) != 1 || report.Missing[0] != ltcBTC {
		t.Fatalf("Missing = %v, want [%s]", report.Missing, ltcBTC)
	}
	// every triangle trades LTC/BTC
	if report.Evaluated != 0 {
		t.Errorf("Evaluated = %d, want 0", report.Evaluated)
	}
	for _, c := range p.catalogue.Cycles() {
		if c.Active() {
			t.Errorf("%s should be inactive", c.Key())
		}
	}

	// recovery re-enables the cycles
	a.setFailing(ltcBTC, false)
	report, err = p.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Evaluated != 6 {
		t.Errorf("Evaluated after recovery = %d, want 6", report.Evaluated)
	}
}

func TestPoller_BatchFetch(t *testing.T) {
	a := &batchAdapter{fakeAdapter: triangleAdapter("sim")}
	p, _ := testPoller(a, PollerConfig{})

	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if a.batches.Load() != 1 {
		t.Errorf("batch fetch used %d times, want 1", a.batches.Load())
	}
	if report.Evaluated != 6 {
		t.Errorf("Evaluated = %d, want 6", report.Evaluated)
	}
}

func TestPoller_PairRefresh(t *testing.T) {
	a := triangleAdapter("sim")
	a.pairs = append(a.pairs, ethBTC, ethUSD)
	a.books[ethBTC] = book("sim", ethBTC, levels("0.05:10"), levels("0.051:10"))
	a.books[ethUSD] = book("sim", ethUSD, levels("5:10"), levels("5.1:10"))

	p, cache := testPoller(a, PollerConfig{PairRefreshInterval: time.Nanosecond})

	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	withETH := p.catalogue.Len()

	a.setPairs(btcUSD, ltcBTC, ltcUSD)
	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.catalogue.Len() != 6 || withETH <= 6 {
		t.Errorf("catalogue sizes %d then %d", withETH, p.catalogue.Len())
	}
	if _, ok := cache.Depth("sim", ethBTC); ok {
		t.Error("delisted pair still cached")
	}
}

func TestPoller_ListFailure(t *testing.T) {
	a := triangleAdapter("sim")
	a.listErr = errors.New("maintenance")
	p, _ := testPoller(a, PollerConfig{})

	if _, err := p.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error without a catalogue")
	}

	// with a catalogue a failed refresh is tolerated
	a.listErr = nil
	p.config.PairRefreshInterval = time.Nanosecond
	if _, err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	a.listErr = errors.New("maintenance")
	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("refresh failure should keep the catalogue: %v", err)
	}
	if report.Cycles != 6 {
		t.Errorf("Cycles = %d, want 6", report.Cycles)
	}
}

func TestPoller_RunStops(t *testing.T) {
	a := triangleAdapter("sim")
	p, _ := testPoller(a, PollerConfig{Interval: 10 * time.Millisecond, Jitter: 5 * time.Millisecond})

	ticks := make(chan struct{}, 8)
	p.onTick = func(context.Context, domain.TickReport) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not tick")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	if p.State() != domain.PollerStopped {
		t.Errorf("state = %s, want stopped", p.State())
	}
}

func TestDeactivateMissing(t *testing.T) {
	c := usdTriangle("sim")
	deactivateMissing([]*domain.Cycle{c}, []marketDomain.Pair{ethUSD})
	if !c.Active() {
		t.Error("cycle not using the missing pair should stay active")
	}
	deactivateMissing([]*domain.Cycle{c}, []marketDomain.Pair{ltcUSD})
	if c.Active() {
		t.Error("cycle using the missing pair should be inactive")
	}
}
