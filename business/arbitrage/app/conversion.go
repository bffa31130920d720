package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
)

// tradedAmount returns the traded units of an order on hop that consumes amount.
func tradedAmount(hop domain.Hop, price, amount decimal.Decimal) decimal.Decimal {
	if hop.Side == marketDomain.SideBuy {
		return amount.Div(price)
	}
	return amount
}

// convert pushes amount of the consumed currency through hop at price and
// returns what is produced after the exchange fee. The fee is charged in the
// payment currency, so for a buy it is taken before converting and for a sell
// after.
func convert(ctx context.Context, fees marketApp.FeeQuoter, hop domain.Hop, price, amount decimal.Decimal) (decimal.Decimal, marketDomain.Fee, error) {
	traded := tradedAmount(hop, price, amount)

	fee, err := fees.FeeForOrder(ctx, hop.Side, price, hop.Pair, traded)
	if err != nil {
		return decimal.Zero, fee, apperror.New(apperror.CodeFeeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("fee for "+hop.String()))
	}
	if !fee.InCurrency(hop.Pair.Payment) {
		return decimal.Zero, fee, apperror.New(apperror.CodeFeeCurrencyMismatch,
			apperror.WithContext(fmt.Sprintf("%s: fee in %s, expected %s", hop, fee.Currency, hop.Pair.Payment)))
	}

	if hop.Side == marketDomain.SideBuy {
		return amount.Sub(fee.Amount).Div(price), fee, nil
	}
	return traded.Mul(price).Sub(fee.Amount), fee, nil
}
