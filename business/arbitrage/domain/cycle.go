package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

var (
	// IndicatorInput is the nominal amount pushed through a cycle to rank it.
	IndicatorInput = decimal.NewFromInt(10)

	// NotEvaluable marks analysis fields of a cycle that could not be priced.
	NotEvaluable = decimal.NewFromInt(-1)
)

// Evaluation is the analysis result of one cycle for one tick.
type Evaluation struct {
	IndicatorOutput decimal.Decimal
	TradeAmount     decimal.Decimal // best input volume in the start currency
	TradeProfit     decimal.Decimal // profit of TradeAmount in the start currency
	At              time.Time
}

// NotEvaluated returns an evaluation holding the sentinel in every field.
func NotEvaluated() Evaluation {
	return Evaluation{
		IndicatorOutput: NotEvaluable,
		TradeAmount:     NotEvaluable,
		TradeProfit:     NotEvaluable,
	}
}

// Evaluable reports whether the cycle could be priced.
func (e Evaluation) Evaluable() bool {
	return !e.IndicatorOutput.Equal(NotEvaluable)
}

// Profitable reports whether the nominal input grows around the cycle.
func (e Evaluation) Profitable() bool {
	return e.Evaluable() && e.IndicatorOutput.GreaterThan(IndicatorInput)
}

// Cycle is a closed chain of hops on one exchange. The hop list is fixed at
// creation, only the activation flag and the evaluation change afterwards.
type Cycle struct {
	exchange string
	hops     []Hop
	key      string

	mu         sync.RWMutex
	active     bool
	evaluation Evaluation
}

// NewCycle validates and creates a cycle. Every hop must be on the same
// exchange, consume what the previous hop produced, and the last hop must
// produce the currency the first one consumes.
func NewCycle(hops ...Hop) (*Cycle, error) {
	if len(hops) == 0 {
		return nil, errors.New("cycle needs at least one hop")
	}

	exchange := hops[0].Exchange
	for i, h := range hops {
		if h.Exchange != exchange {
			return nil, fmt.Errorf("hop %d is on %s, cycle is on %s", i, h.Exchange, exchange)
		}
		if i > 0 && h.Consumes() != hops[i-1].Produces() {
			return nil, fmt.Errorf("hop %d consumes %s but previous hop produces %s", i, h.Consumes(), hops[i-1].Produces())
		}
	}
	if first, last := hops[0].Consumes(), hops[len(hops)-1].Produces(); first != last {
		return nil, fmt.Errorf("cycle starts with %s but ends with %s", first, last)
	}

	c := &Cycle{
		exchange:   exchange,
		hops:       append([]Hop(nil), hops...),
		active:     true,
		evaluation: NotEvaluated(),
	}
	c.key = buildKey(exchange, c.hops)
	return c, nil
}

func buildKey(exchange string, hops []Hop) string {
	var b strings.Builder
	b.WriteString(exchange)
	for _, h := range hops {
		b.WriteByte('|')
		b.WriteString(h.String())
	}
	return b.String()
}

// Exchange returns the exchange of the cycle.
func (c *Cycle) Exchange() string {
	return c.exchange
}

// Hops returns a copy of the hop list.
func (c *Cycle) Hops() []Hop {
	return append([]Hop(nil), c.hops...)
}

// Len returns the number of hops.
func (c *Cycle) Len() int {
	return len(c.hops)
}

// Hop returns the i-th hop.
func (c *Cycle) Hop(i int) Hop {
	return c.hops[i]
}

// Start returns the currency the cycle starts and ends with.
func (c *Cycle) Start() currency.Code {
	return c.hops[0].Consumes()
}

// Key identifies the cycle by exchange and hop list.
func (c *Cycle) Key() string {
	return c.key
}

// Path returns the visited currencies, "USD→BTC→LTC→USD".
func (c *Cycle) Path() string {
	parts := make([]string, 0, len(c.hops)+1)
	parts = append(parts, c.Start().String())
	for _, h := range c.hops {
		parts = append(parts, h.Produces().String())
	}
	return strings.Join(parts, "→")
}

// Equal reports whether both cycles have the same exchange and the same ordered hops.
func (c *Cycle) Equal(o *Cycle) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.exchange != o.exchange || len(c.hops) != len(o.hops) {
		return false
	}
	for i := range c.hops {
		if c.hops[i] != o.hops[i] {
			return false
		}
	}
	return true
}

// Uses reports whether any hop trades pair.
func (c *Cycle) Uses(pair marketDomain.Pair) bool {
	for _, h := range c.hops {
		if h.Pair == pair {
			return true
		}
	}
	return false
}

// Active reports whether the cycle takes part in analysis.
func (c *Cycle) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive enables or disables the cycle. Disabling resets the evaluation.
func (c *Cycle) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
	if !active {
		c.evaluation = NotEvaluated()
	}
}

// Evaluation returns the latest analysis result.
func (c *Cycle) Evaluation() Evaluation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evaluation
}

// SetEvaluation stores an analysis result.
func (c *Cycle) SetEvaluation(e Evaluation) {
	c.mu.Lock()
	c.evaluation = e
	c.mu.Unlock()
}

// MarkNotEvaluable deactivates the cycle for the current tick.
func (c *Cycle) MarkNotEvaluable() {
	c.SetActive(false)
}

// Tradable reports whether orders can be generated from the cycle.
func (c *Cycle) Tradable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active && c.evaluation.Evaluable() && c.evaluation.TradeAmount.IsPositive()
}

// CycleSnapshot is a read-only copy of a cycle and its analysis state.
type CycleSnapshot struct {
	Key             string
	Exchange        string
	Path            string
	Hops            []Hop
	Active          bool
	LastEvaluated   time.Time
	IndicatorInput  decimal.Decimal
	IndicatorOutput decimal.Decimal
	TradeAmount     decimal.Decimal
	TradeProfit     decimal.Decimal
}

// Snapshot copies the cycle.
func (c *Cycle) Snapshot() CycleSnapshot {
	c.mu.RLock()
	active, e := c.active, c.evaluation
	c.mu.RUnlock()

	return CycleSnapshot{
		Key:             c.key,
		Exchange:        c.exchange,
		Path:            c.Path(),
		Hops:            c.Hops(),
		Active:          active,
		LastEvaluated:   e.At,
		IndicatorInput:  IndicatorInput,
		IndicatorOutput: e.IndicatorOutput,
		TradeAmount:     e.TradeAmount,
		TradeProfit:     e.TradeProfit,
	}
}

// Profitable reports whether the snapshot's nominal input grew around the cycle.
func (s CycleSnapshot) Profitable() bool {
	return !s.IndicatorOutput.Equal(NotEvaluable) && s.IndicatorOutput.GreaterThan(s.IndicatorInput)
}

// Start returns the start currency of the snapshot.
func (s CycleSnapshot) Start() currency.Code {
	if len(s.Hops) == 0 {
		return ""
	}
	return s.Hops[0].Consumes()
}
