package binance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-sequences/business/market/app"
	"github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

var (
	_ app.ExchangeAdapter = (*Adapter)(nil)
	_ app.Connector       = (*Adapter)(nil)
)

// AdapterConfig holds configuration for the Binance adapter.
type AdapterConfig struct {
	Name              string
	BaseURL           string
	WebSocketURL      string
	StreamDepth       bool     // Keep a @depth20 stream and use REST only when it is stale
	Assets            []string // Allow-list of assets, empty = every asset
	DepthLimit        int
	RequestsPerMinute int
	StaleTimeout      time.Duration
	FeeRate           decimal.Decimal
	Balances          map[string]map[string]decimal.Decimal // account -> currency -> amount
}

// Adapter implements app.ExchangeAdapter for Binance spot markets.
type Adapter struct {
	config AdapterConfig
	logger logger.LoggerInterface
	http   *HTTPClient
	stream *Stream // nil unless StreamDepth

	assets map[currency.Code]struct{}

	symbolsMu sync.RWMutex
	symbols   map[domain.Pair]string

	tracer trace.Tracer
}

// NewAdapter creates a new Binance adapter.
func NewAdapter(cfg AdapterConfig, log logger.LoggerInterface) (*Adapter, error) {
	if cfg.Name == "" {
		cfg.Name = "binance"
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = 5 * time.Second
	}

	httpClient, err := NewHTTPClient(HTTPClientConfig{
		BaseURL:           cfg.BaseURL,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, log)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		config:  cfg,
		logger:  log,
		http:    httpClient,
		assets:  make(map[currency.Code]struct{}, len(cfg.Assets)),
		symbols: make(map[domain.Pair]string),
		tracer:  otel.Tracer(tracerName),
	}
	for _, asset := range cfg.Assets {
		a.assets[currency.Parse(asset)] = struct{}{}
	}

	if cfg.StreamDepth {
		a.stream, err = NewStream(StreamConfig{BaseURL: cfg.WebSocketURL}, log)
		if err != nil {
			return nil, fmt.Errorf("create depth stream: %w", err)
		}
	}

	return a, nil
}

// Name returns the exchange identifier.
func (a *Adapter) Name() string {
	return a.config.Name
}

func (a *Adapter) allowed(c currency.Code) bool {
	if len(a.assets) == 0 {
		return true
	}
	_, ok := a.assets[c]
	return ok
}

// ListSupportedPairs returns every TRADING market whose assets are allowed.
func (a *Adapter) ListSupportedPairs(ctx context.Context) ([]domain.Pair, error) {
	ctx, span := a.tracer.Start(ctx, "binance.list_pairs")
	defer span.End()

	info, err := a.http.GetExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make(map[domain.Pair]string)
	pairs := make([]domain.Pair, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != SymbolStatusTrading {
			continue
		}
		pair := domain.NewPair(currency.Parse(s.BaseAsset), currency.Parse(s.QuoteAsset))
		if pair.Traded == pair.Payment || !a.allowed(pair.Traded) || !a.allowed(pair.Payment) {
			continue
		}
		symbols[pair] = s.Symbol
		pairs = append(pairs, pair)
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })

	a.symbolsMu.Lock()
	a.symbols = symbols
	a.symbolsMu.Unlock()

	if a.stream != nil {
		names := make([]string, 0, len(symbols))
		for _, sym := range symbols {
			names = append(names, sym)
		}
		sort.Strings(names)
		a.stream.SetSymbols(names)
	}

	span.SetAttributes(attribute.Int("pairs", len(pairs)))
	a.logger.Debug(ctx, "binance pairs listed", "exchange", a.config.Name, "pairs", len(pairs))

	return pairs, nil
}

func (a *Adapter) symbol(pair domain.Pair) string {
	a.symbolsMu.RLock()
	sym, ok := a.symbols[pair]
	a.symbolsMu.RUnlock()
	if ok {
		return sym
	}
	return strings.ToUpper(pair.Traded.String() + pair.Payment.String())
}

// FetchDepth returns the streamed book when fresh, otherwise a REST snapshot.
func (a *Adapter) FetchDepth(ctx context.Context, pair domain.Pair) (*domain.Depth, error) {
	symbol := a.symbol(pair)

	ctx, span := a.tracer.Start(ctx, "binance.fetch_depth",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	if a.stream != nil {
		if bids, asks, at, ok := a.stream.Latest(symbol, a.config.StaleTimeout); ok {
			span.SetAttributes(attribute.String("source", "websocket"))
			return domain.NewDepth(a.config.Name, pair, bids, asks, at), nil
		}
		a.logger.Debug(ctx, "stream book stale, using REST", "symbol", symbol)
	}

	resp, err := a.http.GetDepth(ctx, symbol, a.config.DepthLimit)
	if err != nil {
		return nil, err
	}

	bids, err := parseLevels(resp.Bids)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithCause(err),
			apperror.WithContext("failed to parse bid levels for "+symbol))
	}
	asks, err := parseLevels(resp.Asks)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidOrderbook,
			apperror.WithCause(err),
			apperror.WithContext("failed to parse ask levels for "+symbol))
	}

	span.SetAttributes(attribute.String("source", "rest"))
	return domain.NewDepth(a.config.Name, pair, bids, asks, time.Now()), nil
}

// FeeForOrder charges the configured taker rate on the order value, in the payment currency.
func (a *Adapter) FeeForOrder(_ context.Context, _ domain.Side, price decimal.Decimal, pair domain.Pair, amount decimal.Decimal) (domain.Fee, error) {
	return domain.ProportionalFee(a.config.FeeRate, price, pair, amount), nil
}

// AccountBalances returns the configured balances of account.
// Signed account endpoints are not used.
func (a *Adapter) AccountBalances(_ context.Context, account string) ([]domain.Balance, error) {
	held, ok := a.config.Balances[account]
	if !ok {
		return nil, apperror.New(apperror.CodeBalanceFetchFailed,
			apperror.WithContext(fmt.Sprintf("unknown account %q on %s", account, a.config.Name)))
	}
	return balancesFromMap(held), nil
}

func balancesFromMap(held map[string]decimal.Decimal) []domain.Balance {
	out := make([]domain.Balance, 0, len(held))
	for code, amount := range held {
		out = append(out, domain.Balance{Currency: currency.Parse(code), Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}

// Connect opens the depth stream when enabled. Pairs must be listed first.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.stream == nil {
		return nil
	}
	a.symbolsMu.RLock()
	listed := len(a.symbols) > 0
	a.symbolsMu.RUnlock()
	if !listed {
		if _, err := a.ListSupportedPairs(ctx); err != nil {
			return err
		}
	}
	return a.stream.Connect(ctx)
}

// Close closes the depth stream.
func (a *Adapter) Close() error {
	if a.stream == nil {
		return nil
	}
	return a.stream.Close()
}

// StreamConnected reports whether the depth stream is live.
func (a *Adapter) StreamConnected() bool {
	return a.stream != nil && a.stream.IsConnected()
}
