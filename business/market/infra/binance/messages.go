// Package binance implements the exchange adapter for Binance spot markets.
package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/market/domain"
)

// WebSocket request/response messages

// WSRequest is a WebSocket subscription request.
type WSRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// WSResponse is a WebSocket subscription response.
type WSResponse struct {
	Result json.RawMessage `json:"result"`
	ID     int64           `json:"id"`
}

// StreamEvent is the base wrapper for all combined stream messages.
type StreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// PartialDepthEvent represents a partial book depth snapshot.
// Stream: <symbol>@depth20@100ms, the symbol must be set from the stream name.
type PartialDepthEvent struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"` // Top bids [[price, qty], ...]
	Asks         [][]string `json:"asks"` // Top asks [[price, qty], ...]
	Symbol       string     `json:"-"`
}

// REST API responses

// DepthResponse is the REST API response for orderbook depth.
type DepthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// ExchangeInfoResponse is the subset of /api/v3/exchangeInfo the adapter reads.
type ExchangeInfoResponse struct {
	Timezone   string       `json:"timezone"`
	ServerTime int64        `json:"serverTime"`
	Symbols    []SymbolInfo `json:"symbols"`
}

// SymbolInfo describes one market.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}

// SymbolStatusTrading marks a market open for orders.
const SymbolStatusTrading = "TRADING"

// APIError represents an error response from Binance API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// errorHandler parses Binance API error responses.
func errorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}

// parseLevels converts raw [price, qty] levels. Zero quantity levels are skipped.
func parseLevels(raw [][]string) ([]domain.Level, error) {
	levels := make([]domain.Level, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", r[0], err)
		}
		qty, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, fmt.Errorf("quantity %q: %w", r[1], err)
		}
		if qty.IsZero() {
			continue
		}
		levels = append(levels, domain.Level{Price: price, Amount: qty})
	}
	return levels, nil
}

// Stream names

// DepthStream returns the partial book depth stream name for a symbol.
// Uses @depth20 which sends the top 20 bid/ask levels (not diff stream).
func DepthStream(symbol string) string {
	return strings.ToLower(symbol) + "@depth20@100ms"
}

// symbolFromStream extracts the symbol from a stream name.
// Example: "ethusdc@depth20@100ms" -> "ETHUSDC"
func symbolFromStream(stream string) string {
	if idx := strings.Index(stream, "@"); idx > 0 {
		return strings.ToUpper(stream[:idx])
	}
	return strings.ToUpper(stream)
}
