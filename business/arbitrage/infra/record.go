package infra

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

// opportunityRecord is the wire and storage form of an opportunity.
type opportunityRecord struct {
	ID              uuid.UUID       `json:"id"`
	Exchange        string          `json:"exchange"`
	CycleKey        string          `json:"cycle_key"`
	Path            string          `json:"path"`
	Hops            int             `json:"hops"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	Profit          decimal.Decimal `json:"profit"`
	IndicatorOutput decimal.Decimal `json:"indicator_output"`
	DetectedAt      time.Time       `json:"detected_at"`
}

func newOpportunityRecord(o domain.Opportunity) opportunityRecord {
	return opportunityRecord{
		ID:              o.ID,
		Exchange:        o.Exchange,
		CycleKey:        o.CycleKey,
		Path:            o.Path,
		Hops:            o.Hops,
		Currency:        o.Currency.String(),
		Amount:          o.Amount,
		Profit:          o.Profit,
		IndicatorOutput: o.IndicatorOutput,
		DetectedAt:      o.DetectedAt.UTC(),
	}
}

func (r opportunityRecord) opportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:              r.ID,
		Exchange:        r.Exchange,
		CycleKey:        r.CycleKey,
		Path:            r.Path,
		Hops:            r.Hops,
		Currency:        currency.Parse(r.Currency),
		Amount:          r.Amount,
		Profit:          r.Profit,
		IndicatorOutput: r.IndicatorOutput,
		DetectedAt:      r.DetectedAt,
	}
}
