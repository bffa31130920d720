package binance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func restServer(t *testing.T, depthCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case exchangeInfoEndpoint:
			_ = json.NewEncoder(w).Encode(ExchangeInfoResponse{Symbols: []SymbolInfo{
				{Symbol: "BTCUSDT", Status: "TRADING", BaseAsset: "BTC", QuoteAsset: "USDT"},
				{Symbol: "ETHBTC", Status: "TRADING", BaseAsset: "ETH", QuoteAsset: "BTC"},
				{Symbol: "ETHUSDT", Status: "BREAK", BaseAsset: "ETH", QuoteAsset: "USDT"},
				{Symbol: "DOGEUSDT", Status: "TRADING", BaseAsset: "DOGE", QuoteAsset: "USDT"},
			}})
		case depthEndpoint:
			if depthCalls != nil {
				depthCalls.Add(1)
			}
			switch r.URL.Query().Get("symbol") {
			case "BTCUSDT":
				if r.URL.Query().Get("limit") != "20" {
					t.Errorf("expected limit 20, got %s", r.URL.Query().Get("limit"))
				}
				_ = json.NewEncoder(w).Encode(DepthResponse{
					LastUpdateID: 1,
					Bids:         [][]string{{"99.5", "2"}, {"99.0", "0"}, {"99.9", "1"}},
					Asks:         [][]string{{"100.2", "1"}, {"100.1", "3"}},
				})
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			}
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	a, err := NewAdapter(AdapterConfig{
		Name:       "binance",
		BaseURL:    baseURL,
		Assets:     []string{"BTC", "ETH", "USDT"},
		DepthLimit: 20,
		FeeRate:    decimal.RequireFromString("0.001"),
		Balances: map[string]map[string]decimal.Decimal{
			"main": {"USDT": decimal.NewFromInt(500), "BTC": decimal.RequireFromString("0.01")},
		},
	}, testLogger())
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	return a
}

func TestAdapter_ListSupportedPairs(t *testing.T) {
	server := restServer(t, nil)
	defer server.Close()

	pairs, err := newTestAdapter(t, server.URL).ListSupportedPairs(context.Background())
	if err != nil {
		t.Fatalf("ListSupportedPairs failed: %v", err)
	}

	// ETHUSDT is not trading and DOGE is not in the allow-list
	want := []domain.Pair{
		domain.NewPair(currency.BTC, currency.USDT),
		domain.NewPair(currency.ETH, currency.BTC),
	}
	if len(pairs) != len(want) {
		t.Fatalf("expected %v, got %v", want, pairs)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestAdapter_FetchDepth(t *testing.T) {
	server := restServer(t, nil)
	defer server.Close()

	a := newTestAdapter(t, server.URL)
	depth, err := a.FetchDepth(context.Background(), domain.NewPair(currency.BTC, currency.USDT))
	if err != nil {
		t.Fatalf("FetchDepth failed: %v", err)
	}

	if len(depth.Bids) != 2 {
		t.Fatalf("zero quantity level should be dropped, got %d bids", len(depth.Bids))
	}
	if !depth.Bids[0].Price.Equal(decimal.RequireFromString("99.9")) {
		t.Errorf("bids not sorted descending: %v", depth.Bids)
	}
	if !depth.Asks[0].Price.Equal(decimal.RequireFromString("100.1")) {
		t.Errorf("asks not sorted ascending: %v", depth.Asks)
	}
	if depth.Exchange != "binance" {
		t.Errorf("unexpected exchange %q", depth.Exchange)
	}
}

func TestAdapter_FetchDepth_APIErrorIsUnavailable(t *testing.T) {
	server := restServer(t, nil)
	defer server.Close()

	_, err := newTestAdapter(t, server.URL).FetchDepth(context.Background(), domain.NewPair(currency.ETH, currency.BTC))
	if err == nil {
		t.Fatal("expected error for invalid symbol")
	}
	if !apperror.HasCode(err, apperror.CodeDataUnavailable) {
		t.Errorf("expected DATA_UNAVAILABLE, got %v", err)
	}
}

func TestAdapter_FetchDepth_ServerDown(t *testing.T) {
	server := restServer(t, nil)
	url := server.URL
	server.Close()

	_, err := newTestAdapter(t, url).FetchDepth(context.Background(), domain.NewPair(currency.BTC, currency.USDT))
	if !apperror.HasCode(err, apperror.CodeDataUnavailable) {
		t.Errorf("expected DATA_UNAVAILABLE, got %v", err)
	}
}

func TestAdapter_FeeAndBalances(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	pair := domain.NewPair(currency.BTC, currency.USDT)

	fee, err := a.FeeForOrder(context.Background(), domain.SideBuy, decimal.NewFromInt(100), pair, decimal.NewFromInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if !fee.Amount.Equal(decimal.RequireFromString("0.2")) || fee.Currency != currency.USDT {
		t.Errorf("unexpected fee %+v", fee)
	}

	balances, err := a.AccountBalances(context.Background(), "main")
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 2 || balances[0].Currency != currency.BTC {
		t.Errorf("unexpected balances %+v", balances)
	}

	if _, err := a.AccountBalances(context.Background(), "nobody"); !apperror.HasCode(err, apperror.CodeBalanceFetchFailed) {
		t.Errorf("expected BALANCE_FETCH_FAILED, got %v", err)
	}
}

func TestAdapter_StreamedDepthPreferredOverREST(t *testing.T) {
	var depthCalls atomic.Int32
	rest := restServer(t, &depthCalls)
	defer rest.Close()

	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "btcusdt@depth20@100ms") {
			t.Errorf("unexpected streams query %q", r.URL.RawQuery)
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		msg := `{"stream":"btcusdt@depth20@100ms","data":{"lastUpdateId":7,"bids":[["101","1"]],"asks":[["102","1"]]}}`
		if err := conn.Write(r.Context(), websocket.MessageText, []byte(msg)); err != nil {
			return
		}
		// read until the client goes away
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
		}
	}))
	defer ws.Close()

	a, err := NewAdapter(AdapterConfig{
		Name:         "binance",
		BaseURL:      rest.URL,
		WebSocketURL: "ws" + strings.TrimPrefix(ws.URL, "http"),
		StreamDepth:  true,
		Assets:       []string{"BTC", "ETH", "USDT"},
		StaleTimeout: time.Minute,
	}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	pair := domain.NewPair(currency.BTC, currency.USDT)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, _, _, ok := a.stream.Latest("BTCUSDT", time.Minute); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for streamed depth")
		}
		time.Sleep(10 * time.Millisecond)
	}

	depth, err := a.FetchDepth(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	if !depth.Bids[0].Price.Equal(decimal.NewFromInt(101)) {
		t.Errorf("expected streamed bid 101, got %s", depth.Bids[0].Price)
	}
	if n := depthCalls.Load(); n != 0 {
		t.Errorf("REST depth should not be called while stream is fresh, got %d calls", n)
	}
}

func TestNormalizeDepthLimit(t *testing.T) {
	tests := map[int]int{0: 5, 5: 5, 15: 20, 20: 20, 101: 500, 9000: 5000}
	for in, want := range tests {
		if got := normalizeDepthLimit(in); got != want {
			t.Errorf("normalizeDepthLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
