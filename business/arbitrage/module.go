// Package arbitrage implements the arbitrage bounded context: cycle generation,
// analysis, polling and order generation.
package arbitrage

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/arbitrage-sequences/business/arbitrage/di"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/infra"
	marketDI "github.com/fd1az/arbitrage-sequences/business/market/di"
	"github.com/fd1az/arbitrage-sequences/internal/config"
	"github.com/fd1az/arbitrage-sequences/internal/di"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
	"github.com/fd1az/arbitrage-sequences/internal/monolith"
)

const connectTimeout = 5 * time.Second

// Module implements the arbitrage bounded context.
type Module struct {
	mu    sync.Mutex
	sinks map[string]func(context.Context) error
}

// Sinks returns the ping function of every connected opportunity sink, keyed by name.
func (m *Module) Sinks() map[string]func(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]func(context.Context) error, len(m.sinks))
	for k, v := range m.sinks {
		out[k] = v
	}
	return out
}

func (m *Module) addSink(name string, ping func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sinks == nil {
		m.sinks = make(map[string]func(context.Context) error)
	}
	m.sinks[name] = ping
}

// RegisterServices registers the controller and the trading pipeline.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Controller, func(sr di.ServiceRegistry) *app.Controller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		controller, err := app.NewController(
			ControllerConfig(cfg.Arbitrage),
			ExchangeSettings(cfg.Exchanges),
			marketDI.GetAdapters(sr),
			marketDI.GetDepthCache(sr),
			log,
		)
		if err != nil {
			panic("failed to create arbitrage controller: " + err.Error())
		}
		return controller
	})

	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) app.OrderExecutor {
		return infra.NewDryRunExecutor(sr.Get("logger").(logger.LoggerInterface))
	})

	di.RegisterToken(c, arbitrageDI.Trader, func(sr di.ServiceRegistry) *app.Trader {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewTrader(
			arbitrageDI.GetController(sr).OrderGenerator(),
			arbitrageDI.GetExecutor(sr),
			cfg.Arbitrage.SafetyPercentDecimal(),
			log,
		)
	})

	return nil
}

// ControllerConfig maps the engine settings to the controller configuration.
func ControllerConfig(cfg config.ArbitrageConfig) app.ControllerConfig {
	return app.ControllerConfig{
		Generator: app.GeneratorConfig{
			MaxExtensions: cfg.MaxExtensions,
			Workers:       cfg.GeneratorWorkers,
		},
		Analyzer: app.AnalyzerConfig{
			Workers:             cfg.AnalyzerWorkers,
			MaxSearchIterations: cfg.MaxSearchIterations,
		},
		Poller: app.PollerConfig{
			Interval:            cfg.PollInterval,
			Jitter:              cfg.PollJitter,
			FetchTimeout:        cfg.FetchTimeout,
			FetchConcurrency:    cfg.FetchConcurrency,
			PairRefreshInterval: cfg.PairRefreshInterval,
			TopCycles:           cfg.TopCycles,
		},
		StopTimeout: cfg.StopTimeout,
	}
}

// ExchangeSettings maps the configured exchanges, keeping their order.
func ExchangeSettings(exchanges []config.ExchangeConfig) []app.ExchangeSettings {
	out := make([]app.ExchangeSettings, 0, len(exchanges))
	for _, ex := range exchanges {
		out = append(out, app.ExchangeSettings{
			Name:             ex.Name,
			Active:           ex.Active,
			AutomaticTrading: ex.AutomaticTrading,
			Limits: app.TradeLimits{
				Account:     ex.Account,
				TradeAmount: ex.TradeAmountDecimal(),
			},
		})
	}
	return out
}

// Startup attaches the observers and the trader. Pollers are started by the caller.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	controller := arbitrageDI.GetController(mono.Services())

	controller.SetTrader(arbitrageDI.GetTrader(mono.Services()))

	if !cfg.Arbitrage.TUIMode {
		console := infra.NewConsoleReporter(mono.Currencies(), cfg.App.LogLevel == "debug")
		controller.Subscribe(console)
		controller.Observe(console)
		console.Start(controller.Exchanges())
		mono.OnClose(func() error {
			console.Stop()
			return nil
		})
	}

	if cfg.Redis.Enabled {
		if publisher, err := connectRedis(ctx, cfg.Redis, log); err != nil {
			log.Warn(ctx, "redis unavailable, opportunities are not published", "addr", cfg.Redis.Addr, "error", err)
		} else {
			controller.Subscribe(publisher)
			m.addSink("redis", publisher.Ping)
			mono.OnClose(publisher.Close)
			log.Info(ctx, "publishing opportunities to redis", "channel", cfg.Redis.Channel, "stream", cfg.Redis.Stream)
		}
	}

	if cfg.Postgres.Enabled {
		if store, err := connectPostgres(ctx, cfg.Postgres, log); err != nil {
			log.Warn(ctx, "postgres unavailable, opportunities are not stored", "error", err)
		} else {
			controller.Subscribe(store)
			m.addSink("postgres", store.Ping)
			mono.OnClose(store.Close)
			log.Info(ctx, "storing opportunities in postgres")
		}
	}

	mono.OnClose(func() error {
		controller.StopAll()
		return nil
	})

	log.Info(ctx, "arbitrage module started", "exchanges", controller.Exchanges())
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.LoggerInterface) (*infra.RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	publisher := infra.NewRedisPublisher(rdb, infra.RedisPublisherConfig{
		Channel: cfg.Channel,
		Stream:  cfg.Stream,
	}, log)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := publisher.Ping(pingCtx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return publisher, nil
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig, log logger.LoggerInterface) (*infra.PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, err
	}
	store := infra.NewPostgresStore(pool, log)
	if err := store.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(connectCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}
