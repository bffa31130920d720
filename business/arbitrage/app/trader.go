package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// TradeLimits bounds an automatic trade on one exchange.
type TradeLimits struct {
	Account     string
	TradeAmount decimal.Decimal // cap in the start currency, zero = no cap
}

// Trader realizes profitable cycles on exchanges that allow automatic trading.
type Trader struct {
	orders        *OrderGenerator
	executor      OrderExecutor
	safetyPercent decimal.Decimal
	logger        logger.LoggerInterface
}

// NewTrader creates a new Trader.
func NewTrader(orders *OrderGenerator, executor OrderExecutor, safetyPercent decimal.Decimal, log logger.LoggerInterface) *Trader {
	return &Trader{
		orders:        orders,
		executor:      executor,
		safetyPercent: safetyPercent,
		logger:        log,
	}
}

// Trade sizes an order chain for cycle and submits it. The start amount is the
// analyzed trade amount less the safety margin, capped by the trade limit and
// the account balance of the start currency.
func (t *Trader) Trade(ctx context.Context, adapter marketApp.ExchangeAdapter, cycle *domain.Cycle, limits TradeLimits) ([]domain.Order, error) {
	if !cycle.Tradable() {
		return nil, apperror.New(apperror.CodeCycleNotTradable, apperror.WithContext(cycle.Key()))
	}

	amount := cycle.Evaluation().TradeAmount.Mul(decimal.NewFromInt(1).Sub(t.safetyPercent.Div(hundred)))
	if limits.TradeAmount.IsPositive() {
		amount = decimal.Min(amount, limits.TradeAmount)
	}

	balances, err := adapter.AccountBalances(ctx, limits.Account)
	if err != nil {
		return nil, err
	}
	held := decimal.Zero
	for _, b := range balances {
		if b.Currency == cycle.Start() {
			held = b.Amount
			break
		}
	}
	amount = decimal.Min(amount, held)
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.CodeCycleNotTradable,
			apperror.WithContext("no "+cycle.Start().String()+" balance in "+limits.Account))
	}

	orders, err := t.orders.GenerateWithAmount(ctx, adapter, cycle, amount, limits.Account, true)
	if err != nil {
		return nil, err
	}

	if err := t.executor.Submit(ctx, orders); err != nil {
		return nil, apperror.New(apperror.CodeOrderSubmitFailed,
			apperror.WithCause(err),
			apperror.WithContext(cycle.Key()))
	}

	t.logger.Info(ctx, "cycle submitted",
		"exchange", cycle.Exchange(),
		"cycle", cycle.Path(),
		"amount", amount.String(),
		"orders", len(orders))
	return orders, nil
}
