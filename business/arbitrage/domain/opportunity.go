package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

// Opportunity is an opportunity log entry for a cycle that became profitable.
type Opportunity struct {
	ID              uuid.UUID
	Exchange        string
	CycleKey        string
	Path            string
	Hops            int
	Currency        currency.Code // start currency of Amount and Profit
	Amount          decimal.Decimal
	Profit          decimal.Decimal
	IndicatorOutput decimal.Decimal
	DetectedAt      time.Time
}

// NewOpportunity records s as detected at at.
func NewOpportunity(s CycleSnapshot, at time.Time) Opportunity {
	return Opportunity{
		ID:              uuid.New(),
		Exchange:        s.Exchange,
		CycleKey:        s.Key,
		Path:            s.Path,
		Hops:            len(s.Hops),
		Currency:        s.Start(),
		Amount:          s.TradeAmount,
		Profit:          s.TradeProfit,
		IndicatorOutput: s.IndicatorOutput,
		DetectedAt:      at,
	}
}

// ProfitPercent returns Profit relative to Amount in percent.
func (o Opportunity) ProfitPercent() decimal.Decimal {
	if !o.Amount.IsPositive() {
		return decimal.Zero
	}
	return o.Profit.Div(o.Amount).Mul(decimal.NewFromInt(100))
}
