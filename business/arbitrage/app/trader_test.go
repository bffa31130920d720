package app

import (
	"context"
	"errors"
	"testing"

	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

func TestTrader_Trade(t *testing.T) {
	tests := []struct {
		name     string
		balance  string
		limit    string
		wantCost string // USD spent by the first order
	}{
		{name: "analyzed_amount", balance: "1000", limit: "0", wantCost: "99"},
		{name: "trade_limit", balance: "1000", limit: "40", wantCost: "40"},
		{name: "balance", balance: "25", limit: "40", wantCost: "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := triangleAdapter("sim")
			a.balances["main"] = []marketDomain.Balance{{Currency: currency.USD, Amount: d(tt.balance)}}
			exec := &recordingExecutor{}
			trader := NewTrader(NewOrderGenerator(cacheWith(a), testLogger()), exec, d("1"), testLogger())

			orders, err := trader.Trade(context.Background(), a, analyzedTriangle(t, a),
				TradeLimits{Account: "main", TradeAmount: d(tt.limit)})
			if err != nil {
				t.Fatalf("Trade: %v", err)
			}
			if len(orders) != 3 {
				t.Fatalf("expected 3 orders, got %d", len(orders))
			}
			if !orders[0].Value().Equal(d(tt.wantCost)) {
				t.Errorf("expected first order to cost %s, got %s", tt.wantCost, orders[0].Value())
			}
			if got := exec.submitted(); got != 1 {
				t.Errorf("expected 1 submitted chain, got %d", got)
			}
		})
	}
}

func TestTrader_Failures(t *testing.T) {
	t.Run("no_balance", func(t *testing.T) {
		a := triangleAdapter("sim")
		a.balances["main"] = []marketDomain.Balance{{Currency: currency.BTC, Amount: d("5")}}
		exec := &recordingExecutor{}
		trader := NewTrader(NewOrderGenerator(cacheWith(a), testLogger()), exec, d("1"), testLogger())

		_, err := trader.Trade(context.Background(), a, analyzedTriangle(t, a), TradeLimits{Account: "main"})
		expectCode(t, err, apperror.CodeCycleNotTradable)
		if got := exec.submitted(); got != 0 {
			t.Errorf("expected nothing submitted, got %d", got)
		}
	})

	t.Run("unknown_account", func(t *testing.T) {
		a := triangleAdapter("sim")
		trader := NewTrader(NewOrderGenerator(cacheWith(a), testLogger()), &recordingExecutor{}, d("1"), testLogger())

		_, err := trader.Trade(context.Background(), a, analyzedTriangle(t, a), TradeLimits{Account: "other"})
		expectCode(t, err, apperror.CodeBalanceFetchFailed)
	})

	t.Run("executor_error", func(t *testing.T) {
		a := triangleAdapter("sim")
		exec := &recordingExecutor{err: errors.New("rejected")}
		trader := NewTrader(NewOrderGenerator(cacheWith(a), testLogger()), exec, d("1"), testLogger())

		orders, err := trader.Trade(context.Background(), a, analyzedTriangle(t, a), TradeLimits{Account: "main"})
		if orders != nil {
			t.Errorf("expected no orders, got %d", len(orders))
		}
		expectCode(t, err, apperror.CodeOrderSubmitFailed)
	})

	t.Run("not_tradable", func(t *testing.T) {
		a := triangleAdapter("sim")
		cycle := usdTriangle("sim")
		trader := NewTrader(NewOrderGenerator(cacheWith(a), testLogger()), &recordingExecutor{}, d("1"), testLogger())

		_, err := trader.Trade(context.Background(), a, cycle, TradeLimits{Account: "main"})
		expectCode(t, err, apperror.CodeCycleNotTradable)
	})
}
