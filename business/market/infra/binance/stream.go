package binance

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
	"github.com/fd1az/arbitrage-sequences/internal/wsconn"
)

const (
	meterName = "binance"

	// Binance WebSocket endpoints
	BaseWSURL   = "wss://stream.binance.com:9443"
	BaseWSURLUS = "wss://stream.binance.us:9443"

	// Binance drops idle connections, a request every few minutes keeps it open
	keepAliveInterval = 2 * time.Minute
)

// StreamConfig holds configuration for the depth stream.
type StreamConfig struct {
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type streamBook struct {
	bids     []domain.Level
	asks     []domain.Level
	received time.Time
}

// Stream keeps the latest @depth20 snapshot of a set of symbols.
type Stream struct {
	config StreamConfig
	logger logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.RWMutex

	symbols []string
	books   map[string]*streamBook
	booksMu sync.RWMutex

	nextID        atomic.Int64
	stopKeepAlive chan struct{}
	stopOnce      sync.Once

	depthUpdates metric.Int64Counter
	parseErrors  metric.Int64Counter
}

// NewStream creates a depth stream. Symbols are set with SetSymbols before Connect.
func NewStream(cfg StreamConfig, log logger.LoggerInterface) (*Stream, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseWSURL
	}

	meter := otel.Meter(meterName)
	depthUpdates, err := meter.Int64Counter("binance_depth_updates_total",
		metric.WithDescription("Total depth updates received"))
	if err != nil {
		return nil, err
	}
	parseErrors, err := meter.Int64Counter("binance_parse_errors_total",
		metric.WithDescription("Message parse errors"))
	if err != nil {
		return nil, err
	}

	return &Stream{
		config:        cfg,
		logger:        log,
		books:         make(map[string]*streamBook),
		stopKeepAlive: make(chan struct{}),
		depthUpdates:  depthUpdates,
		parseErrors:   parseErrors,
	}, nil
}

// SetSymbols replaces the symbols to stream. It takes effect on the next Connect.
func (s *Stream) SetSymbols(symbols []string) {
	s.booksMu.Lock()
	s.symbols = append([]string(nil), symbols...)
	s.booksMu.Unlock()
}

// buildStreamURL constructs the combined streams WebSocket URL.
func (s *Stream) buildStreamURL() (string, error) {
	s.booksMu.RLock()
	symbols := s.symbols
	s.booksMu.RUnlock()

	if len(symbols) == 0 {
		return "", apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no symbols to stream"))
	}

	streams := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		streams = append(streams, DepthStream(sym))
	}

	// Combined streams URL: /stream?streams=stream1/stream2/...
	u, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// Connect dials the combined stream, retrying with backoff until ctx is done.
func (s *Stream) Connect(ctx context.Context) error {
	wsURL, err := s.buildStreamURL()
	if err != nil {
		return err
	}

	wsCfg := wsconn.DefaultConfig(wsURL, "binance")
	if s.config.ReadTimeout > 0 {
		wsCfg.ReadTimeout = s.config.ReadTimeout
	}
	if s.config.WriteTimeout > 0 {
		wsCfg.WriteTimeout = s.config.WriteTimeout
	}

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("failed to create wsconn"))
	}
	conn.OnMessage(s.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			s.logger.Warn(context.Background(), "binance stream state changed", "state", state, "error", err)
			return
		}
		s.logger.Debug(context.Background(), "binance stream state changed", "state", state)
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		_ = conn.Close()
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to Binance"))
	}

	s.connMu.Lock()
	old := s.conn
	s.conn = conn
	s.connMu.Unlock()
	if old != nil {
		_ = old.Close()
	} else {
		go s.keepAlive()
	}

	s.logger.Info(ctx, "binance stream connected", "url", wsURL)
	return nil
}

// handleMessage processes incoming WebSocket messages.
func (s *Stream) handleMessage(ctx context.Context, data []byte) {
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil || event.Stream == "" {
		// Subscription confirmations have no stream field
		var resp WSResponse
		if json.Unmarshal(data, &resp) == nil {
			return
		}
		s.parseErrors.Add(ctx, 1)
		s.logger.Debug(ctx, "failed to parse message", "error", err, "data", string(data[:min(len(data), 200)]))
		return
	}

	if !strings.Contains(event.Stream, "@depth") {
		return
	}

	var depth PartialDepthEvent
	if err := json.Unmarshal(event.Data, &depth); err != nil {
		s.parseErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "failed to parse partial depth", "error", err)
		return
	}
	depth.Symbol = symbolFromStream(event.Stream)
	s.applyDepth(ctx, &depth)
}

// applyDepth replaces the book with the snapshot received.
func (s *Stream) applyDepth(ctx context.Context, event *PartialDepthEvent) {
	bids, err := parseLevels(event.Bids)
	if err != nil {
		s.parseErrors.Add(ctx, 1)
		return
	}
	asks, err := parseLevels(event.Asks)
	if err != nil {
		s.parseErrors.Add(ctx, 1)
		return
	}

	s.booksMu.Lock()
	s.books[event.Symbol] = &streamBook{bids: bids, asks: asks, received: time.Now()}
	s.booksMu.Unlock()

	s.depthUpdates.Add(ctx, 1)
}

// Latest returns the streamed book of symbol when it is younger than maxAge.
func (s *Stream) Latest(symbol string, maxAge time.Duration) (bids, asks []domain.Level, at time.Time, ok bool) {
	s.booksMu.RLock()
	book, found := s.books[symbol]
	s.booksMu.RUnlock()

	if !found || time.Since(book.received) > maxAge {
		return nil, nil, time.Time{}, false
	}
	return book.bids, book.asks, book.received, true
}

// keepAlive sends periodic requests to keep the connection alive.
func (s *Stream) keepAlive() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopKeepAlive:
			return
		case <-ticker.C:
			s.connMu.RLock()
			conn := s.conn
			s.connMu.RUnlock()
			if conn == nil || !conn.IsConnected() {
				continue
			}
			req := WSRequest{Method: "LIST_SUBSCRIPTIONS", ID: s.nextID.Add(1)}
			if err := conn.SendJSON(context.Background(), req); err != nil {
				s.logger.Warn(context.Background(), "keep-alive failed", "error", err)
			}
		}
	}
}

// IsConnected returns whether the stream is connected.
func (s *Stream) IsConnected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn != nil && s.conn.IsConnected()
}

// Close closes the stream.
func (s *Stream) Close() error {
	s.stopOnce.Do(func() { close(s.stopKeepAlive) })

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
