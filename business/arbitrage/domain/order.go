package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
)

// Order is one executable order of a realized cycle.
type Order struct {
	ID        uuid.UUID
	Exchange  string
	Account   string
	Side      marketDomain.Side
	Price     decimal.Decimal
	Pair      marketDomain.Pair
	Amount    decimal.Decimal // traded units
	DependsOn uuid.UUID       // uuid.Nil when the order has no prerequisite
}

// HasDependency reports whether the order must wait for another order.
func (o Order) HasDependency() bool {
	return o.DependsOn != uuid.Nil
}

// Value returns price * amount in the payment currency.
func (o Order) Value() decimal.Decimal {
	return o.Price.Mul(o.Amount)
}
