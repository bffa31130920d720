// Package domain contains market data types shared by exchange adapters and the arbitrage engine.
package domain

import (
	"fmt"
	"strings"

	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

// Side represents the direction of an order.
type Side string

const (
	// SideBuy consumes the payment currency and produces the traded currency.
	SideBuy Side = "buy"
	// SideSell consumes the traded currency and produces the payment currency.
	SideSell Side = "sell"
)

// String returns the side name.
func (s Side) String() string {
	return string(s)
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Pair is a tradable market on one exchange: traded currency priced in payment currency.
type Pair struct {
	Traded  currency.Code
	Payment currency.Code
}

// NewPair creates a pair from two codes.
func NewPair(traded, payment currency.Code) Pair {
	return Pair{Traded: traded, Payment: payment}
}

// ParsePair parses "BTC/USD", "BTC-USD" or "BTC_USD".
func ParsePair(s string) (Pair, error) {
	sep := strings.IndexAny(s, "/-_")
	if sep <= 0 || sep == len(s)-1 {
		return Pair{}, fmt.Errorf("invalid pair %q", s)
	}
	p := NewPair(currency.Parse(s[:sep]), currency.Parse(s[sep+1:]))
	if p.Traded == p.Payment {
		return Pair{}, fmt.Errorf("invalid pair %q: same currency on both sides", s)
	}
	return p, nil
}

// String returns "TRADED/PAYMENT".
func (p Pair) String() string {
	return p.Traded.String() + "/" + p.Payment.String()
}

// Contains reports whether c is one of the pair's currencies.
func (p Pair) Contains(c currency.Code) bool {
	return p.Traded == c || p.Payment == c
}

// Other returns the counter currency of c. c must be in the pair.
func (p Pair) Other(c currency.Code) currency.Code {
	if p.Traded == c {
		return p.Payment
	}
	return p.Traded
}

// Consumes returns the currency spent by an order on side.
func (p Pair) Consumes(side Side) currency.Code {
	if side == SideBuy {
		return p.Payment
	}
	return p.Traded
}

// Produces returns the currency received by an order on side.
func (p Pair) Produces(side Side) currency.Code {
	if side == SideBuy {
		return p.Traded
	}
	return p.Payment
}

// SideConsuming returns the side that spends c on this pair.
func (p Pair) SideConsuming(c currency.Code) Side {
	if p.Payment == c {
		return SideBuy
	}
	return SideSell
}
