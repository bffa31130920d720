package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-sequences/internal/httpclient"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
	"github.com/fd1az/arbitrage-sequences/internal/ratelimit"
)

const (
	tracerName = "binance"

	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	depthEndpoint        = "/api/v3/depth"
	exchangeInfoEndpoint = "/api/v3/exchangeInfo"

	exchangeInfoWeight = 20

	httpTimeout = 10 * time.Second
)

// validDepthLimits are the limits accepted by /api/v3/depth.
var validDepthLimits = []int{5, 10, 20, 50, 100, 500, 1000, 5000}

// HTTPClientConfig holds configuration for the Binance HTTP client.
type HTTPClientConfig struct {
	BaseURL           string        // API base URL (empty = default)
	Timeout           time.Duration // Request timeout
	RequestsPerMinute int           // Request weight budget, 0 = unlimited
}

// HTTPClient provides Binance REST API access.
type HTTPClient struct {
	client  *httpclient.Client
	limiter *ratelimit.Limiter
	depthCB *circuitbreaker.CircuitBreaker[*DepthResponse]
	infoCB  *circuitbreaker.CircuitBreaker[*ExchangeInfoResponse]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewHTTPClient creates a new Binance HTTP client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.New(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithResponseEvents(),
		httpclient.WithHeader("Accept", "application/json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	onState := func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "binance circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	depthCfg := circuitbreaker.DefaultConfig("binance.depth")
	depthCfg.OnStateChange = onState
	infoCfg := circuitbreaker.DefaultConfig("binance.exchangeInfo")
	infoCfg.OnStateChange = onState

	return &HTTPClient{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		depthCB: circuitbreaker.New[*DepthResponse](depthCfg),
		infoCB:  circuitbreaker.New[*ExchangeInfoResponse](infoCfg),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// normalizeDepthLimit rounds limit up to the next accepted value.
func normalizeDepthLimit(limit int) int {
	for _, v := range validDepthLimits {
		if limit <= v {
			return v
		}
	}
	return validDepthLimits[len(validDepthLimits)-1]
}

// depthWeight is the request weight Binance charges for a depth limit.
func depthWeight(limit int) int {
	switch {
	case limit <= 100:
		return 5
	case limit <= 500:
		return 25
	case limit <= 1000:
		return 50
	default:
		return 250
	}
}

// GetDepth fetches the orderbook depth for a symbol via REST API.
func (c *HTTPClient) GetDepth(ctx context.Context, symbol string, limit int) (*DepthResponse, error) {
	limit = normalizeDepthLimit(limit)

	ctx, span := c.tracer.Start(ctx, "binance.http.get_depth",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if err := c.limiter.WaitN(ctx, depthWeight(limit)); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	result, err := c.depthCB.Execute(func() (*DepthResponse, error) {
		var result DepthResponse
		_, err := c.client.Get(ctx, depthEndpoint, &result,
			httpclient.Query("symbol", symbol),
			httpclient.Query("limit", strconv.Itoa(limit)),
			httpclient.Label("endpoint", "depth"),
			httpclient.Label("symbol", symbol),
			httpclient.OnError(errorHandler),
		)
		if err != nil {
			return nil, err
		}
		return &result, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Unavailable("fetch depth "+symbol, err)
	}

	span.SetAttributes(
		attribute.Int("bids", len(result.Bids)),
		attribute.Int("asks", len(result.Asks)),
		attribute.Int64("last_update_id", result.LastUpdateID),
	)

	c.logger.Debug(ctx, "fetched depth via HTTP",
		"symbol", symbol,
		"bids", len(result.Bids),
		"asks", len(result.Asks))

	return result, nil
}

// GetExchangeInfo fetches market metadata. With symbols set only those markets are returned.
func (c *HTTPClient) GetExchangeInfo(ctx context.Context, symbols ...string) (*ExchangeInfoResponse, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.exchange_info",
		trace.WithAttributes(attribute.Int("symbols", len(symbols))),
	)
	defer span.End()

	if err := c.limiter.WaitN(ctx, exchangeInfoWeight); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err))
	}

	result, err := c.infoCB.Execute(func() (*ExchangeInfoResponse, error) {
		var result ExchangeInfoResponse
		opts := []httpclient.RequestOption{
			httpclient.Label("endpoint", "exchangeInfo"),
			httpclient.OnError(errorHandler),
		}
		if len(symbols) > 0 {
			opts = append(opts, httpclient.Query("symbols", `["`+strings.Join(symbols, `","`)+`"]`))
		}
		if _, err := c.client.Get(ctx, exchangeInfoEndpoint, &result, opts...); err != nil {
			return nil, err
		}
		return &result, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Unavailable("fetch exchange info", err)
	}

	span.SetAttributes(attribute.Int("markets", len(result.Symbols)))
	return result, nil
}
