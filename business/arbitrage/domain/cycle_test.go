package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

var (
	btcUSD = marketDomain.NewPair(currency.BTC, currency.USD)
	ltcBTC = marketDomain.NewPair(currency.LTC, currency.BTC)
	ltcUSD = marketDomain.NewPair(currency.LTC, currency.USD)
)

func triangle(t *testing.T) *Cycle {
	t.Helper()
	c, err := NewCycle(
		NewHop("sim", btcUSD, marketDomain.SideBuy),
		NewHop("sim", ltcBTC, marketDomain.SideBuy),
		NewHop("sim", ltcUSD, marketDomain.SideSell),
	)
	if err != nil {
		t.Fatalf("NewCycle failed: %v", err)
	}
	return c
}

func TestNewCycle_Validation(t *testing.T) {
	tests := []struct {
		name string
		hops []Hop
	}{
		{name: "empty"},
		{
			name: "mixed_exchanges",
			hops: []Hop{
				NewHop("a", btcUSD, marketDomain.SideBuy),
				NewHop("b", btcUSD, marketDomain.SideSell),
			},
		},
		{
			name: "broken_chain",
			hops: []Hop{
				NewHop("sim", btcUSD, marketDomain.SideBuy),
				NewHop("sim", ltcUSD, marketDomain.SideSell),
			},
		},
		{
			name: "not_closed",
			hops: []Hop{
				NewHop("sim", btcUSD, marketDomain.SideBuy),
				NewHop("sim", ltcBTC, marketDomain.SideBuy),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCycle(tt.hops...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCycle_Accessors(t *testing.T) {
	c := triangle(t)

	if c.Start() != currency.USD {
		t.Errorf("Start = %s, want USD", c.Start())
	}
	if got := c.Path(); got != "USD→BTC→LTC→USD" {
		t.Errorf("Path = %s", got)
	}
	if got := c.Key(); got != "sim|buy BTC/USD|buy LTC/BTC|sell LTC/USD" {
		t.Errorf("Key = %s", got)
	}
	if !c.Uses(ltcBTC) || c.Uses(marketDomain.NewPair(currency.ETH, currency.USD)) {
		t.Error("Uses mismatch")
	}

	hops := c.Hops()
	hops[0].Side = marketDomain.SideSell
	if c.Hop(0).Side != marketDomain.SideBuy {
		t.Error("Hops must return a copy")
	}
}

func TestCycle_Equal(t *testing.T) {
	a, b := triangle(t), triangle(t)
	if !a.Equal(b) {
		t.Error("identical hop lists should be equal")
	}

	reversed, err := NewCycle(
		NewHop("sim", ltcUSD, marketDomain.SideBuy),
		NewHop("sim", ltcBTC, marketDomain.SideSell),
		NewHop("sim", btcUSD, marketDomain.SideSell),
	)
	if err != nil {
		t.Fatal(err)
	}
	if a.Equal(reversed) {
		t.Error("reversed cycle should differ")
	}
}

func TestCycle_StateTransitions(t *testing.T) {
	c := triangle(t)

	if !c.Active() || c.Evaluation().Evaluable() {
		t.Fatal("new cycle should be active and not yet evaluated")
	}

	c.SetEvaluation(Evaluation{
		IndicatorOutput: decimal.RequireFromString("10.4"),
		TradeAmount:     decimal.NewFromInt(50),
		TradeProfit:     decimal.NewFromInt(2),
	})
	if !c.Evaluation().Profitable() || !c.Tradable() {
		t.Error("cycle should be profitable and tradable")
	}
	if s := c.Snapshot(); !s.Profitable() || s.Start() != currency.USD || len(s.Hops) != 3 {
		t.Errorf("unexpected snapshot %+v", s)
	}

	c.MarkNotEvaluable()
	if c.Active() || c.Tradable() {
		t.Error("cycle should be inactive")
	}
	e := c.Evaluation()
	if !e.TradeAmount.Equal(NotEvaluable) || !e.TradeProfit.Equal(NotEvaluable) {
		t.Errorf("expected sentinel values, got %+v", e)
	}
}

func TestNewOpportunity(t *testing.T) {
	c := triangle(t)
	c.SetEvaluation(Evaluation{
		IndicatorOutput: decimal.RequireFromString("10.4"),
		TradeAmount:     decimal.NewFromInt(50),
		TradeProfit:     decimal.NewFromInt(2),
	})

	opp := NewOpportunity(c.Snapshot(), c.Evaluation().At)
	if opp.Currency != currency.USD || opp.Hops != 3 || opp.Path != "USD→BTC→LTC→USD" {
		t.Errorf("unexpected opportunity %+v", opp)
	}
	if !opp.ProfitPercent().Equal(decimal.NewFromInt(4)) {
		t.Errorf("ProfitPercent = %s, want 4", opp.ProfitPercent())
	}
}
