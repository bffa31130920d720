package simulated

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	btcUSD = domain.NewPair(currency.BTC, currency.USD)
	ltcBTC = domain.NewPair(currency.LTC, currency.BTC)
)

func newTestAdapter(t *testing.T, volatility float64) *Adapter {
	t.Helper()
	a, err := NewAdapter(Config{
		Name:       "sim",
		FeeRate:    d("0.002"),
		Volatility: volatility,
		Seed:       42,
		Books: []Book{
			{Pair: ltcBTC, Bid: d("0.0099"), Ask: d("0.01"), Amount: d("50"), Levels: 3, Step: d("0.01")},
			{Pair: btcUSD, Bid: d("99"), Ask: d("100"), Amount: d("1"), Levels: 3, Step: d("0.01")},
		},
		Balances: map[string]map[string]decimal.Decimal{"demo": {"USD": d("1000")}},
	})
	if err != nil {
		t.Fatalf("NewAdapter failed: %v", err)
	}
	return a
}

func TestNewAdapter_RejectsCrossedBook(t *testing.T) {
	_, err := NewAdapter(Config{Books: []Book{{Pair: btcUSD, Bid: d("101"), Ask: d("100")}}})
	if err == nil {
		t.Fatal("expected error for bid above ask")
	}
}

func TestAdapter_ListSupportedPairsSorted(t *testing.T) {
	a := newTestAdapter(t, 0)
	pairs, err := a.ListSupportedPairs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 2 || pairs[0] != btcUSD || pairs[1] != ltcBTC {
		t.Errorf("unexpected pairs %v", pairs)
	}
}

func TestAdapter_FetchDepthLadder(t *testing.T) {
	a := newTestAdapter(t, 0)
	depth, err := a.FetchDepth(context.Background(), btcUSD)
	if err != nil {
		t.Fatal(err)
	}

	wantBids := []string{"99", "98.01", "97.0299"}
	wantAsks := []string{"100", "101", "102.01"}
	for i := range wantBids {
		if !depth.Bids[i].Price.Equal(d(wantBids[i])) {
			t.Errorf("bid %d = %s, want %s", i, depth.Bids[i].Price, wantBids[i])
		}
		if !depth.Asks[i].Price.Equal(d(wantAsks[i])) {
			t.Errorf("ask %d = %s, want %s", i, depth.Asks[i].Price, wantAsks[i])
		}
	}
	if depth.Exchange != "sim" {
		t.Errorf("unexpected exchange %q", depth.Exchange)
	}
}

func TestAdapter_RandomWalkIsSeeded(t *testing.T) {
	a := newTestAdapter(t, 0.01)
	b := newTestAdapter(t, 0.01)

	for i := 0; i < 5; i++ {
		da, _ := a.FetchDepth(context.Background(), btcUSD)
		db, _ := b.FetchDepth(context.Background(), btcUSD)
		if !da.Bids[0].Price.Equal(db.Bids[0].Price) {
			t.Fatalf("step %d: same seed diverged %s vs %s", i, da.Bids[0].Price, db.Bids[0].Price)
		}
		if !da.Bids[0].Price.LessThan(da.Asks[0].Price) {
			t.Fatalf("step %d: crossed book %s >= %s", i, da.Bids[0].Price, da.Asks[0].Price)
		}
	}
}

func TestAdapter_Offline(t *testing.T) {
	a := newTestAdapter(t, 0)
	a.SetOffline(ltcBTC, true)

	_, err := a.FetchDepth(context.Background(), ltcBTC)
	if !apperror.HasCode(err, apperror.CodeDataUnavailable) {
		t.Errorf("expected DATA_UNAVAILABLE, got %v", err)
	}

	depths, err := a.FetchDepths(context.Background(), []domain.Pair{btcUSD, ltcBTC})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := depths[ltcBTC]; ok {
		t.Error("offline pair should be missing from batch result")
	}
	if _, ok := depths[btcUSD]; !ok {
		t.Error("online pair should be present in batch result")
	}

	pairs, _ := a.ListSupportedPairs(context.Background())
	if len(pairs) != 1 {
		t.Errorf("offline pair should not be listed, got %v", pairs)
	}
}

func TestAdapter_FeeAndBalances(t *testing.T) {
	a := newTestAdapter(t, 0)

	fee, err := a.FeeForOrder(context.Background(), domain.SideBuy, d("100"), btcUSD, d("0.1"))
	if err != nil {
		t.Fatal(err)
	}
	if !fee.Amount.Equal(d("0.02")) || fee.Currency != currency.USD {
		t.Errorf("unexpected fee %+v", fee)
	}

	balances, err := a.AccountBalances(context.Background(), "demo")
	if err != nil || len(balances) != 1 || !balances[0].Amount.Equal(d("1000")) {
		t.Errorf("unexpected balances %+v (%v)", balances, err)
	}
	if _, err := a.AccountBalances(context.Background(), "other"); !apperror.HasCode(err, apperror.CodeBalanceFetchFailed) {
		t.Errorf("expected BALANCE_FETCH_FAILED, got %v", err)
	}
}
