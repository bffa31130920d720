// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

// Hop is one conversion step of a cycle: an order on Pair in direction Side.
type Hop struct {
	Exchange string
	Pair     marketDomain.Pair
	Side     marketDomain.Side
}

// NewHop creates a hop.
func NewHop(exchange string, pair marketDomain.Pair, side marketDomain.Side) Hop {
	return Hop{Exchange: exchange, Pair: pair, Side: side}
}

// Consumes returns the currency spent by the hop.
func (h Hop) Consumes() currency.Code {
	return h.Pair.Consumes(h.Side)
}

// Produces returns the currency received by the hop.
func (h Hop) Produces() currency.Code {
	return h.Pair.Produces(h.Side)
}

// String returns "buy BTC/USD".
func (h Hop) String() string {
	return h.Side.String() + " " + h.Pair.String()
}
