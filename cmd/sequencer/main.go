// Package main is the entry point for the arbitrage sequencer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage"
	arbitrageApp "github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/arbitrage-sequences/business/arbitrage/di"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/infra"
	"github.com/fd1az/arbitrage-sequences/business/market"
	"github.com/fd1az/arbitrage-sequences/internal/apm"
	"github.com/fd1az/arbitrage-sequences/internal/config"
	"github.com/fd1az/arbitrage-sequences/internal/health"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
	"github.com/fd1az/arbitrage-sequences/internal/metrics"
	"github.com/fd1az/arbitrage-sequences/internal/monolith"
	"github.com/fd1az/arbitrage-sequences/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arbitrage-sequencer %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, cancel, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Arbitrage.TUIMode = tuiMode

	// In TUI mode the dashboard owns the terminal
	out := io.Writer(os.Stderr)
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting arbitrage sequencer",
		"version", version,
		"environment", cfg.App.Environment,
		"exchanges", len(cfg.Exchanges),
	)

	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg.Telemetry, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Warn(context.Background(), "shutdown errors", "error", err)
		}
	}()

	arbitrageModule := &arbitrage.Module{}

	// Define modules in dependency order
	modules := []monolith.Module{
		&market.Module{}, // adapters and depth cache
		arbitrageModule,  // depends on market
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	controller := arbitrageDI.GetController(mono.Services())

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	maxAge := 3*cfg.Arbitrage.PollInterval + cfg.Arbitrage.FetchTimeout
	for _, ex := range cfg.Exchanges {
		if !ex.Active {
			continue
		}
		name := ex.Name
		healthServer.RegisterCheck("exchange:"+name, health.FreshnessCheck(func() time.Time {
			return controller.LastUpdate(name)
		}, maxAge))
	}
	if err := healthServer.Start(ctx); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer healthServer.Stop(context.Background())

	registerSinks := func() {
		for name, ping := range arbitrageModule.Sinks() {
			healthServer.RegisterCheck("sink:"+name, health.PingCheck(ping))
		}
	}

	if tuiMode {
		return runTUI(ctx, cancel, cfg, mono, modules, controller, registerSinks)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	registerSinks()
	return runCLI(ctx, controller, log)
}

func startTelemetry(ctx context.Context, cfg config.TelemetryConfig, log logger.LoggerInterface) (func(), error) {
	traceProvider, err := apm.NewTraceProvider(log,
		apm.WithProvider(apm.ParseProvider(cfg.Provider)),
		apm.WithEndpoint(cfg.OTLPEndpoint),
		apm.WithHeaders(cfg.OTLPHeaders),
		apm.WithServiceName(cfg.ServiceName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if cfg.OTLPEndpoint != "" && apm.ParseProvider(cfg.Provider) == apm.OTLPGRPCProvider {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(cfg.OTLPEndpoint, nil, metrics.InsecureOtel)))
	}

	meterProvider, err := metrics.NewMetricProvider(metricOpts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(log, metrics.WithPort(strconv.Itoa(cfg.PrometheusPort)))
	promServer.Start(ctx)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Stop(shutdownCtx)
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

func runCLI(ctx context.Context, controller *arbitrageApp.Controller, log logger.LoggerInterface) error {
	log.Info(ctx, "all modules started, starting pollers")

	// A missing adapter is reported but does not stop the other exchanges
	if err := controller.StartAll(ctx); err != nil {
		log.Error(ctx, "some exchanges failed to start", "error", err)
	}

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	controller.StopAll()
	return nil
}

func runTUI(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	mono monolith.Monolith,
	modules []monolith.Module,
	controller *arbitrageApp.Controller,
	onStarted func(),
) error {
	var (
		names []string
		auto  []string
	)
	for _, ex := range cfg.Exchanges {
		names = append(names, ex.Name)
		if ex.AutomaticTrading {
			auto = append(auto, ex.Name)
		}
	}

	errCh := make(chan error, 1)
	var reporter *infra.TUIReporter

	start := func() {
		reporter.Startup("config", "done", "")
		reporter.Startup("market", "connecting", "")

		if err := startModules(ctx, mono, modules); err != nil {
			reporter.Startup("market", "failed", err.Error())
			reporter.Error(err)
			errCh <- err
			return
		}
		reporter.Startup("market", "done", "")
		onStarted()

		controller.Subscribe(reporter)
		controller.Observe(reporter)

		reporter.Startup("engine", "connecting", "")
		if err := controller.StartAll(ctx); err != nil {
			reporter.Error(err)
		}
		for _, name := range controller.Exchanges() {
			info, err := controller.SiteInfo(name)
			if err != nil {
				continue
			}
			reporter.ExchangeState(name, controller.PollerState(name), info.AutomaticTrading)
		}
		reporter.Startup("engine", "done", "")
		errCh <- nil
	}

	p := ui.NewProgram(ui.New(
		ui.WithExchanges(names...),
		ui.WithCurrencies(mono.Currencies()),
		ui.WithAutoTrading(auto...),
		ui.OnStart(start),
	))
	reporter = infra.NewTUIReporter(p)

	// Quit the dashboard on signals
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, runErr := p.Run()
	cancel()
	controller.StopAll()

	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// startModules runs the Startup hook of every module in order.
func startModules(ctx context.Context, mono monolith.Monolith, modules []monolith.Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, mono); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
	}
	return nil
}
