package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

var hundred = decimal.NewFromInt(100)

// OrderGenerator turns an analyzed cycle into a chain of orders.
// It reads the depth cache and quotes fees, nothing else.
type OrderGenerator struct {
	depths marketApp.DepthReader
	logger logger.LoggerInterface
	newID  func() uuid.UUID
}

// NewOrderGenerator creates a new OrderGenerator.
func NewOrderGenerator(depths marketApp.DepthReader, log logger.LoggerInterface) *OrderGenerator {
	return &OrderGenerator{depths: depths, logger: log, newID: uuid.New}
}

// Generate builds the orders of cycle starting from its trade amount reduced
// by safetyPercent. With chained set every order depends on the previous one.
// On any failure no orders are returned.
func (g *OrderGenerator) Generate(ctx context.Context, fees marketApp.FeeQuoter, cycle *domain.Cycle, safetyPercent decimal.Decimal, account string, chained bool) ([]domain.Order, error) {
	if safetyPercent.IsNegative() || safetyPercent.GreaterThanOrEqual(hundred) {
		return nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("safety percent must be in [0, 100), got "+safetyPercent.String()))
	}
	if !cycle.Tradable() {
		return nil, apperror.New(apperror.CodeCycleNotTradable,
			apperror.WithContext(cycle.Key()))
	}

	amount := cycle.Evaluation().TradeAmount.Mul(decimal.NewFromInt(1).Sub(safetyPercent.Div(hundred)))
	return g.GenerateWithAmount(ctx, fees, cycle, amount, account, chained)
}

// GenerateWithAmount builds the orders of cycle for a start amount chosen by the caller.
func (g *OrderGenerator) GenerateWithAmount(ctx context.Context, fees marketApp.FeeQuoter, cycle *domain.Cycle, amount decimal.Decimal, account string, chained bool) ([]domain.Order, error) {
	if !cycle.Active() {
		return nil, apperror.New(apperror.CodeCycleNotTradable,
			apperror.WithContext(cycle.Key()+": inactive"))
	}
	if !amount.IsPositive() {
		return nil, apperror.New(apperror.CodeCycleNotTradable,
			apperror.WithContext(cycle.Key()+": start amount "+amount.String()))
	}

	orders := make([]domain.Order, 0, cycle.Len())
	running := amount

	for i := 0; i < cycle.Len(); i++ {
		hop := cycle.Hop(i)

		depth, ok := g.depths.Depth(cycle.Exchange(), hop.Pair)
		if !ok || !depth.HasSide(hop.Side) {
			return nil, apperror.Unavailable("depth for "+hop.Pair.String(), nil)
		}
		price, ok := depth.PriceForAmount(hop.Side, running)
		if !ok {
			return nil, apperror.New(apperror.CodeInsufficientLiquidity,
				apperror.WithContext(hop.String()+" cannot fill "+running.String()))
		}

		order := domain.Order{
			ID:       g.newID(),
			Exchange: cycle.Exchange(),
			Account:  account,
			Side:     hop.Side,
			Price:    price,
			Pair:     hop.Pair,
			Amount:   tradedAmount(hop, price, running),
		}
		if chained && len(orders) > 0 {
			order.DependsOn = orders[len(orders)-1].ID
		}

		out, fee, err := convert(ctx, fees, hop, price, running)
		if err != nil {
			if apperror.HasCode(err, apperror.CodeFeeCurrencyMismatch) {
				g.logger.Error(ctx, "order generation aborted: fee currency mismatch",
					"cycle", cycle.Key(),
					"hop", hop.String(),
					"fee_currency", fee.Currency,
					"expected", hop.Pair.Payment)
			}
			return nil, err
		}
		if out.IsNegative() {
			g.logger.Error(ctx, "order generation aborted: negative running amount",
				"cycle", cycle.Key(),
				"hop", hop.String(),
				"amount", out.String(),
				"fee", fee.Amount.String())
			return nil, apperror.New(apperror.CodeNegativeRunningAmount,
				apperror.WithContext(cycle.Key()+" at "+hop.String()))
		}

		orders = append(orders, order)
		running = out
	}

	g.logger.Debug(ctx, "orders generated",
		"cycle", cycle.Key(),
		"orders", len(orders),
		"start", amount.String(),
		"end", running.String())

	return orders, nil
}
