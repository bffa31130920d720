package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Level is one price level of an order book. Amount is in traded units.
type Level struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// Cost returns price * amount in payment units.
func (l Level) Cost() decimal.Decimal {
	return l.Price.Mul(l.Amount)
}

// Depth is an order-book snapshot for one pair on one exchange.
// Bids are sorted by descending price, asks by ascending price.
type Depth struct {
	Exchange  string
	Pair      Pair
	Bids      []Level
	Asks      []Level
	Timestamp time.Time
}

// NewDepth builds a snapshot, dropping empty levels and sorting both ladders.
func NewDepth(exchange string, pair Pair, bids, asks []Level, ts time.Time) *Depth {
	d := &Depth{
		Exchange:  exchange,
		Pair:      pair,
		Bids:      cleanLevels(bids),
		Asks:      cleanLevels(asks),
		Timestamp: ts,
	}
	sort.SliceStable(d.Bids, func(i, j int) bool { return d.Bids[i].Price.GreaterThan(d.Bids[j].Price) })
	sort.SliceStable(d.Asks, func(i, j int) bool { return d.Asks[i].Price.LessThan(d.Asks[j].Price) })
	return d
}

func cleanLevels(levels []Level) []Level {
	out := make([]Level, 0, len(levels))
	for _, l := range levels {
		if l.Price.IsPositive() && l.Amount.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

// Ladder returns the side of the book an order on side fills against:
// asks for buys, bids for sells.
func (d *Depth) Ladder(side Side) []Level {
	if side == SideBuy {
		return d.Asks
	}
	return d.Bids
}

// HasSide reports whether the ladder needed by side has any orders.
func (d *Depth) HasSide(side Side) bool {
	return d != nil && len(d.Ladder(side)) > 0
}

// BestOrder returns the first level an order on side would fill against.
func (d *Depth) BestOrder(side Side) (Level, bool) {
	if !d.HasSide(side) {
		return Level{}, false
	}
	return d.Ladder(side)[0], true
}

// BestCapacity returns how much of the consumed currency the best level can absorb.
// For a buy that is the payment cost of the best ask, for a sell the traded amount of the best bid.
func (d *Depth) BestCapacity(side Side) (decimal.Decimal, bool) {
	best, ok := d.BestOrder(side)
	if !ok {
		return decimal.Zero, false
	}
	if side == SideBuy {
		return best.Cost(), true
	}
	return best.Amount, true
}

// PriceForAmount returns the volume-weighted price of an order on side that
// consumes amount of the consumed currency (payment for buys, traded for sells).
// It returns false when the ladder cannot fill the whole amount.
func (d *Depth) PriceForAmount(side Side, amount decimal.Decimal) (decimal.Decimal, bool) {
	if !d.HasSide(side) || !amount.IsPositive() {
		return decimal.Zero, false
	}

	remaining := amount
	traded := decimal.Zero
	payment := decimal.Zero

	for _, level := range d.Ladder(side) {
		if !remaining.IsPositive() {
			break
		}
		if side == SideBuy {
			spend := decimal.Min(remaining, level.Cost())
			traded = traded.Add(spend.Div(level.Price))
			payment = payment.Add(spend)
			remaining = remaining.Sub(spend)
		} else {
			sell := decimal.Min(remaining, level.Amount)
			traded = traded.Add(sell)
			payment = payment.Add(sell.Mul(level.Price))
			remaining = remaining.Sub(sell)
		}
	}

	if remaining.IsPositive() || traded.IsZero() {
		return decimal.Zero, false
	}
	return payment.Div(traded), true
}

// Clone returns a deep copy.
func (d *Depth) Clone() *Depth {
	if d == nil {
		return nil
	}
	c := *d
	c.Bids = append([]Level(nil), d.Bids...)
	c.Asks = append([]Level(nil), d.Asks...)
	return &c
}
