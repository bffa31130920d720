package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

// Fee is an exchange fee for a hypothetical order.
type Fee struct {
	Amount   decimal.Decimal
	Currency currency.Code
}

// InCurrency reports whether the fee is charged in c.
func (f Fee) InCurrency(c currency.Code) bool {
	return f.Currency == c
}

// Balance is an account holding of one currency.
type Balance struct {
	Currency currency.Code
	Amount   decimal.Decimal
}

// ProportionalFee computes rate * price * amount charged in the payment currency.
func ProportionalFee(rate, price decimal.Decimal, pair Pair, amount decimal.Decimal) Fee {
	return Fee{
		Amount:   price.Mul(amount).Mul(rate),
		Currency: pair.Payment,
	}
}
