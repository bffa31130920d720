package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// ControllerConfig holds configuration for the arbitrage controller.
type ControllerConfig struct {
	Generator   GeneratorConfig
	Analyzer    AnalyzerConfig
	Poller      PollerConfig
	StopTimeout time.Duration
}

// ExchangeSettings is the configured state of one exchange.
type ExchangeSettings struct {
	Name             string
	Active           bool
	AutomaticTrading bool
	Limits           TradeLimits
}

type site struct {
	settings  ExchangeSettings
	catalogue *Catalogue
	poller    *Poller
	cancel    context.CancelFunc
	done      chan struct{}

	// abandoned is the done channel of a poller that outlived its stop timeout.
	abandoned chan struct{}
}

func closed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (s *site) running() bool {
	return s.done != nil && !closed(s.done)
}

// draining reports whether an abandoned poller is still running.
func (s *site) draining() bool {
	if s.abandoned == nil {
		return false
	}
	if closed(s.abandoned) {
		s.abandoned = nil
		return false
	}
	return true
}

// Controller owns one poller per active exchange, their catalogues and the
// activation state, and fans results out to observers.
type Controller struct {
	adapters  map[string]marketApp.ExchangeAdapter
	cache     *marketApp.DepthCache
	generator *Generator
	analyzer  *Analyzer
	orders    *OrderGenerator
	config    ControllerConfig
	logger    logger.LoggerInterface
	metrics   *engineMetrics

	mu    sync.RWMutex
	sites map[string]*site
	order []string

	obsMu         sync.RWMutex
	opportunities []OpportunityObserver
	ticks         []TickObserver
	trader        *Trader
}

// NewController creates a controller for exchanges. Exchanges without an
// adapter are kept, Start reports them as a configuration error.
func NewController(
	cfg ControllerConfig,
	exchanges []ExchangeSettings,
	adapters map[string]marketApp.ExchangeAdapter,
	cache *marketApp.DepthCache,
	log logger.LoggerInterface,
) (*Controller, error) {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 15 * time.Second
	}

	metrics, err := newEngineMetrics()
	if err != nil {
		return nil, err
	}

	c := &Controller{
		adapters:  adapters,
		cache:     cache,
		generator: NewGenerator(cfg.Generator, log),
		analyzer:  NewAnalyzer(cfg.Analyzer, log),
		orders:    NewOrderGenerator(cache, log),
		config:    cfg,
		logger:    log,
		metrics:   metrics,
		sites:     make(map[string]*site, len(exchanges)),
	}
	for _, ex := range exchanges {
		if _, dup := c.sites[ex.Name]; dup {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("duplicate exchange "+ex.Name))
		}
		c.sites[ex.Name] = &site{settings: ex, catalogue: NewCatalogue(ex.Name)}
		c.order = append(c.order, ex.Name)
	}
	return c, nil
}

// OrderGenerator returns the order generator reading the controller's cache.
func (c *Controller) OrderGenerator() *OrderGenerator {
	return c.orders
}

// Subscribe adds an opportunity log observer.
func (c *Controller) Subscribe(o OpportunityObserver) {
	c.obsMu.Lock()
	c.opportunities = append(c.opportunities, o)
	c.obsMu.Unlock()
}

// Observe adds a tick observer.
func (c *Controller) Observe(o TickObserver) {
	c.obsMu.Lock()
	c.ticks = append(c.ticks, o)
	c.obsMu.Unlock()
}

// SetTrader enables automatic trading through t on exchanges that allow it.
func (c *Controller) SetTrader(t *Trader) {
	c.obsMu.Lock()
	c.trader = t
	c.obsMu.Unlock()
}

func (c *Controller) site(exchange string) (*site, error) {
	s, ok := c.sites[exchange]
	if !ok {
		return nil, apperror.NotFound(apperror.CodeExchangeNotFound, exchange)
	}
	return s, nil
}

// Exchanges returns the configured exchanges in configuration order.
func (c *Controller) Exchanges() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Start launches the poller of exchange.
func (c *Controller) Start(ctx context.Context, exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(ctx, exchange)
}

func (c *Controller) startLocked(ctx context.Context, exchange string) error {
	s, err := c.site(exchange)
	if err != nil {
		return err
	}
	adapter, ok := c.adapters[exchange]
	if !ok || adapter == nil {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no adapter configured for "+exchange))
	}
	if !s.settings.Active {
		return apperror.New(apperror.CodeExchangeInactive, apperror.WithContext(exchange))
	}
	if s.running() {
		return apperror.New(apperror.CodePollerRunning, apperror.WithContext(exchange))
	}
	if s.draining() {
		return apperror.New(apperror.CodePollerRunning,
			apperror.WithContext(exchange),
			apperror.WithMessage("Previous poller has not exited yet"))
	}

	p := newPoller(adapter, c.cache, s.catalogue, c.generator, c.analyzer, c.config.Poller, c.logger, c.metrics)
	p.onProfitable = c.handleProfitable
	p.onTick = c.handleTick

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.poller, s.cancel, s.done = p, cancel, done

	go func() {
		defer close(done)
		p.Run(pollCtx)

		// the parent ctx may end the poller without Stop being called
		c.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		c.mu.Unlock()
		cancel()
	}()
	return nil
}

// StartAll starts every active exchange. Exchanges that cannot start are
// reported together, the others keep running.
func (c *Controller) StartAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, name := range c.order {
		s := c.sites[name]
		if !s.settings.Active || s.running() {
			continue
		}
		if err := c.startLocked(ctx, name); err != nil {
			c.logger.Error(ctx, "exchange not started", "exchange", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop cancels the poller of exchange and waits up to the stop timeout. A
// poller that does not exit in time is abandoned.
func (c *Controller) Stop(exchange string) error {
	c.mu.Lock()
	s, err := c.site(exchange)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	return c.await(s, exchange, cancel, done)
}

func (c *Controller) await(s *site, exchange string, cancel context.CancelFunc, done chan struct{}) error {
	cancel()

	timer := time.NewTimer(c.config.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		c.logger.Warn(context.Background(), "poller did not stop in time, abandoning",
			"exchange", exchange,
			"timeout", c.config.StopTimeout)
		c.mu.Lock()
		s.abandoned = done
		c.mu.Unlock()
		return apperror.New(apperror.CodePollerStopTimeout, apperror.WithContext(exchange))
	}
}

// StopAll stops every running poller concurrently.
func (c *Controller) StopAll() {
	var wg sync.WaitGroup
	for _, name := range c.Exchanges() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Stop(name)
		}()
	}
	wg.Wait()
}

// Running reports whether the poller of exchange is running.
func (c *Controller) Running(exchange string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sites[exchange]
	return ok && s.running()
}

// PollerState returns the phase of the exchange's poller.
func (c *Controller) PollerState(exchange string) domain.PollerState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sites[exchange]
	if !ok || s.poller == nil {
		return domain.PollerStopped
	}
	if !s.running() {
		return domain.PollerStopped
	}
	return s.poller.State()
}

// SetExchangeActive enables or disables exchange, starting or stopping its poller.
func (c *Controller) SetExchangeActive(ctx context.Context, exchange string, active bool) error {
	c.mu.Lock()
	s, err := c.site(exchange)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	s.settings.Active = active
	if active {
		defer c.mu.Unlock()
		if s.running() {
			return nil
		}
		return c.startLocked(ctx, exchange)
	}
	c.mu.Unlock()
	return c.Stop(exchange)
}

// SetAutomaticTrading allows or forbids automatic trading on exchange.
func (c *Controller) SetAutomaticTrading(exchange string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.site(exchange)
	if err != nil {
		return err
	}
	s.settings.AutomaticTrading = enabled
	return nil
}

// SiteInfo returns the activation state of exchange.
func (c *Controller) SiteInfo(exchange string) (domain.SiteInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, err := c.site(exchange)
	if err != nil {
		return domain.SiteInfo{}, err
	}
	return domain.SiteInfo{Active: s.settings.Active, AutomaticTrading: s.settings.AutomaticTrading}, nil
}

// Catalogue returns a read-only copy of the cycles of exchange.
func (c *Controller) Catalogue(exchange string) ([]domain.CycleSnapshot, error) {
	c.mu.RLock()
	s, err := c.site(exchange)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return s.catalogue.Snapshots(), nil
}

// Catalogues returns a read-only copy of every exchange's cycles.
func (c *Controller) Catalogues() map[string][]domain.CycleSnapshot {
	out := make(map[string][]domain.CycleSnapshot)
	for _, name := range c.Exchanges() {
		if snaps, err := c.Catalogue(name); err == nil {
			out[name] = snaps
		}
	}
	return out
}

// LastUpdate returns when the poller of exchange last completed a tick.
func (c *Controller) LastUpdate(exchange string) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sites[exchange]
	if !ok || s.poller == nil {
		return time.Time{}
	}
	return s.poller.LastUpdate()
}

// GenerateOrders builds the dependency-chained orders of the cycle with
// cycleKey on exchange.
func (c *Controller) GenerateOrders(ctx context.Context, exchange, cycleKey string, safetyPercent decimal.Decimal, account string) ([]domain.Order, error) {
	c.mu.RLock()
	s, err := c.site(exchange)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	adapter, ok := c.adapters[exchange]
	if !ok {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no adapter configured for "+exchange))
	}
	cycle, ok := s.catalogue.Find(cycleKey)
	if !ok {
		return nil, apperror.NotFound(apperror.CodeCycleNotFound, cycleKey)
	}
	return c.orders.Generate(ctx, adapter, cycle, safetyPercent, account, true)
}

func (c *Controller) handleProfitable(ctx context.Context, cycle *domain.Cycle, opp domain.Opportunity) {
	c.obsMu.RLock()
	observers := append([]OpportunityObserver(nil), c.opportunities...)
	trader := c.trader
	c.obsMu.RUnlock()

	for _, o := range observers {
		o.OnOpportunity(ctx, opp)
	}

	if trader == nil {
		return
	}
	c.mu.RLock()
	s, ok := c.sites[opp.Exchange]
	var settings ExchangeSettings
	if ok {
		settings = s.settings
	}
	c.mu.RUnlock()
	if !ok || !settings.AutomaticTrading {
		return
	}

	if _, err := trader.Trade(ctx, c.adapters[opp.Exchange], cycle, settings.Limits); err != nil {
		c.logger.Warn(ctx, "automatic trade skipped", "exchange", opp.Exchange, "cycle", opp.Path, "error", err)
	}
}

func (c *Controller) handleTick(ctx context.Context, report domain.TickReport) {
	c.obsMu.RLock()
	observers := append([]TickObserver(nil), c.ticks...)
	c.obsMu.RUnlock()

	for _, o := range observers {
		o.OnTick(ctx, report)
	}
}
