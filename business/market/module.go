// Package market implements the market data bounded context: exchange adapters and the depth cache.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/market/app"
	marketDI "github.com/fd1az/arbitrage-sequences/business/market/di"
	"github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/business/market/infra/binance"
	"github.com/fd1az/arbitrage-sequences/business/market/infra/simulated"
	"github.com/fd1az/arbitrage-sequences/internal/config"
	"github.com/fd1az/arbitrage-sequences/internal/di"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
	"github.com/fd1az/arbitrage-sequences/internal/monolith"
)

const (
	connectTimeout = 10 * time.Second
	retryInterval  = 5 * time.Second
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers the depth cache and one adapter per configured exchange.
func (m *Module) RegisterServices(c di.Container) error {
	cfg := c.Get("config").(*config.Config)
	log := c.Get("logger").(logger.LoggerInterface)

	adapters, err := NewAdapters(cfg, log)
	if err != nil {
		return err
	}

	di.RegisterToken(c, marketDI.Adapters, func(di.ServiceRegistry) map[string]app.ExchangeAdapter {
		return adapters
	})

	di.RegisterToken(c, marketDI.DepthCache, func(di.ServiceRegistry) *app.DepthCache {
		return app.NewDepthCache()
	})

	return nil
}

// NewAdapters builds the adapter of every configured exchange. Exchanges of an
// unknown kind are skipped, the controller reports them when started.
func NewAdapters(cfg *config.Config, log logger.LoggerInterface) (map[string]app.ExchangeAdapter, error) {
	adapters := make(map[string]app.ExchangeAdapter, len(cfg.Exchanges))

	for _, ex := range cfg.Exchanges {
		balances := map[string]map[string]decimal.Decimal{}
		if ex.Account != "" {
			balances[ex.Account] = ex.BalancesDecimal()
		}

		switch strings.ToLower(ex.Kind) {
		case config.KindBinance:
			adapter, err := binance.NewAdapter(binance.AdapterConfig{
				Name:              ex.Name,
				BaseURL:           ex.Binance.BaseURL,
				WebSocketURL:      ex.Binance.WebSocketURL,
				StreamDepth:       ex.Binance.StreamDepth,
				Assets:            ex.Binance.Assets,
				DepthLimit:        ex.Binance.DepthLimit,
				RequestsPerMinute: ex.Binance.RequestsPerMinute,
				StaleTimeout:      ex.Binance.StaleTimeout,
				FeeRate:           ex.FeeRateDecimal(),
				Balances:          balances,
			}, log)
			if err != nil {
				return nil, fmt.Errorf("exchange %s: %w", ex.Name, err)
			}
			adapters[ex.Name] = adapter

		case config.KindSimulated:
			books, err := simulatedBooks(ex.Simulated.Books)
			if err != nil {
				return nil, fmt.Errorf("exchange %s: %w", ex.Name, err)
			}
			seed := ex.Simulated.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			adapter, err := simulated.NewAdapter(simulated.Config{
				Name:       ex.Name,
				FeeRate:    ex.FeeRateDecimal(),
				Books:      books,
				Volatility: ex.Simulated.Volatility,
				Seed:       uint64(seed),
				Balances:   balances,
			})
			if err != nil {
				return nil, fmt.Errorf("exchange %s: %w", ex.Name, err)
			}
			adapters[ex.Name] = adapter

		default:
			log.Warn(context.Background(), "no adapter for exchange kind", "exchange", ex.Name, "kind", ex.Kind)
		}
	}

	return adapters, nil
}

func simulatedBooks(books []config.BookConfig) ([]simulated.Book, error) {
	out := make([]simulated.Book, 0, len(books))
	for _, b := range books {
		pair, err := domain.ParsePair(b.Pair)
		if err != nil {
			return nil, err
		}
		out = append(out, simulated.Book{
			Pair:   pair,
			Bid:    decimal.NewFromFloat(b.Bid),
			Ask:    decimal.NewFromFloat(b.Ask),
			Amount: decimal.NewFromFloat(b.Amount),
			Levels: b.Levels,
			Step:   decimal.NewFromFloat(b.Step),
		})
	}
	return out, nil
}

// Startup connects streaming adapters. A failed connection does not block
// startup, it is retried in the background.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	for name, adapter := range marketDI.GetAdapters(mono.Services()) {
		connector, ok := adapter.(app.Connector)
		if !ok {
			continue
		}
		mono.OnClose(connector.Close)

		if ex, found := mono.Config().Exchange(name); found && !ex.Active {
			continue
		}

		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := connector.Connect(connectCtx)
		cancel()
		if err == nil {
			continue
		}

		log.Warn(ctx, "exchange connection failed, will retry in background", "exchange", name, "error", err)
		go retryConnect(ctx, log, name, connector)
	}

	log.Info(ctx, "market module started")
	return nil
}

func retryConnect(ctx context.Context, log logger.LoggerInterface, name string, connector app.Connector) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryInterval):
			if err := connector.Connect(ctx); err != nil {
				log.Warn(ctx, "exchange retry failed", "exchange", name, "error", err)
				continue
			}
			log.Info(ctx, "exchange connected", "exchange", name)
			return
		}
	}
}
